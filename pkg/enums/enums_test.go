package enums

import "testing"

func TestParseOrderStatus(t *testing.T) {
	for _, raw := range []string{"pending", "confirmed", "preparing", "ready", "completed", "cancelled"} {
		got, err := ParseOrderStatus(raw)
		if err != nil {
			t.Fatalf("ParseOrderStatus(%q) returned error: %v", raw, err)
		}
		if got.String() != raw {
			t.Fatalf("expected %q, got %q", raw, got)
		}
	}
	if _, err := ParseOrderStatus("canceled"); err == nil {
		t.Fatal("expected american spelling to be rejected")
	}
}

func TestOrderStatusIsTerminal(t *testing.T) {
	terminal := map[OrderStatus]bool{
		OrderStatusCompleted: true,
		OrderStatusCancelled: true,
	}
	for _, status := range validOrderStatuses {
		if status.IsTerminal() != terminal[status] {
			t.Fatalf("unexpected terminal flag for %s", status)
		}
	}
}

func TestRoleIsStaffOrAdmin(t *testing.T) {
	if RoleStudent.IsStaffOrAdmin() {
		t.Fatal("students are not staff")
	}
	if !RoleStaff.IsStaffOrAdmin() || !RoleAdmin.IsStaffOrAdmin() {
		t.Fatal("staff and admin must be recognised")
	}
	if _, err := ParseRole("superuser"); err == nil {
		t.Fatal("expected unknown role to be rejected")
	}
}

func TestParsePaymentMethod(t *testing.T) {
	if got, err := ParsePaymentMethod("mobile-money"); err != nil || got != PaymentMethodMobileMoney {
		t.Fatalf("unexpected parse result %q, %v", got, err)
	}
	if _, err := ParsePaymentMethod("m-pesa"); err == nil {
		t.Fatal("expected legacy method name to be rejected")
	}
}

func TestParseTagType(t *testing.T) {
	if _, err := ParseTagType("temperature"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if TagType("cuisine").IsValid() {
		t.Fatal("unknown tag type should be invalid")
	}
}
