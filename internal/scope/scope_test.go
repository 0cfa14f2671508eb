package scope

import "testing"

func TestValidate(t *testing.T) {
	if err := Validate([]string{ProductsRead, CouponsWrite}); err != nil {
		t.Fatalf("Validate known scopes: %v", err)
	}
	if err := Validate([]string{Wildcard}); err != nil {
		t.Fatalf("Validate wildcard: %v", err)
	}
	if err := Validate(nil); err != nil {
		t.Fatalf("Validate empty: %v", err)
	}
	if err := Validate([]string{"products:admin"}); err == nil {
		t.Fatal("expected error for unknown scope")
	}
	if err := Validate([]string{ProductsRead, "bogus"}); err == nil {
		t.Fatal("expected error when any scope is unknown")
	}
}

func TestAllowed(t *testing.T) {
	tests := []struct {
		name     string
		granted  []string
		required []string
		want     bool
	}{
		{"exact match", []string{ProductsRead}, []string{ProductsRead}, true},
		{"missing scope", []string{ProductsRead}, []string{ProductsWrite}, false},
		{"wildcard covers all", []string{Wildcard}, []string{ProductsWrite, AnalyticsRead}, true},
		{"all required present", []string{OrdersRead, OrdersWrite}, []string{OrdersRead, OrdersWrite}, true},
		{"one of several missing", []string{OrdersRead}, []string{OrdersRead, OrdersWrite}, false},
		{"empty required", []string{}, nil, true},
		{"empty granted", nil, []string{ProductsRead}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Allowed(tt.granted, tt.required...); got != tt.want {
				t.Errorf("Allowed(%v, %v) = %v, want %v", tt.granted, tt.required, got, tt.want)
			}
		})
	}
}

func TestAllIsStableAndExcludesWildcard(t *testing.T) {
	a := All()
	b := All()
	if len(a) == 0 {
		t.Fatal("expected non-empty scope list")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("All() is not stable across calls")
		}
		if a[i] == Wildcard {
			t.Fatal("All() must not include the wildcard")
		}
	}
}
