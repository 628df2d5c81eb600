package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/xraph/cadence"
)

type stateErr string

func (s stateErr) Error() string    { return "pg error " + string(s) }
func (s stateErr) SQLState() string { return string(s) }

func TestInsertErr(t *testing.T) {
	if err := insertErr(fmt.Errorf("insert: %w", stateErr("23505"))); !errors.Is(err, cadence.ErrAlreadyExists) {
		t.Errorf("unique violation = %v, want ErrAlreadyExists", err)
	}
	if err := insertErr(stateErr("23502")); errors.Is(err, cadence.ErrAlreadyExists) {
		t.Errorf("not-null violation mapped to ErrAlreadyExists: %v", err)
	}
	if err := insertErr(nil); err != nil {
		t.Errorf("insertErr(nil) = %v", err)
	}
}

func TestCustomerModelFromNumeric(t *testing.T) {
	m := &customerModel{ID: "cus_01h455vb4pex5vsknk084sn02q", PlanID: "plan_01h455vb4pex5vsknk084sn02q", Credits: "12.340000"}
	c, err := fromCustomerModel(m)
	if err != nil {
		t.Fatal(err)
	}
	if c.ID.String() != m.ID || c.Credits.StringFixed(2) != "12.34" {
		t.Errorf("customer = %s credits %s", c.ID, c.Credits)
	}
}
