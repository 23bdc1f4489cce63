package buybox

import (
	"testing"

	"github.com/ppiankov/buybox/internal/model"
)

// recordView wraps a FactRecord with field assertions
type recordView struct {
	t   *testing.T
	rec *model.FactRecord
}

func (v *recordView) str(field string, got *string, want string) {
	v.t.Helper()
	if got == nil {
		v.t.Errorf("%s: expected %q, got nil", field, want)
		return
	}
	if *got != want {
		v.t.Errorf("%s: expected %q, got %q", field, want, *got)
	}
}

func (v *recordView) boolean(field string, got *bool, want bool) {
	v.t.Helper()
	if got == nil {
		v.t.Errorf("%s: expected %v, got nil", field, want)
		return
	}
	if *got != want {
		v.t.Errorf("%s: expected %v, got %v", field, want, *got)
	}
}

func (v *recordView) money(field string, got model.Money, value float64, currency string) {
	v.t.Helper()
	if got.Value == nil || *got.Value != value {
		v.t.Errorf("%s: expected value %v, got %v", field, value, got.Value)
	}
	if got.Currency == nil || *got.Currency != currency {
		v.t.Errorf("%s: expected currency %q, got %v", field, currency, got.Currency)
	}
}
