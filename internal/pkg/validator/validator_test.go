package validator

import (
	"errors"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tipInput struct {
	Amount decimal.Decimal `json:"amount" validate:"money_positive"`
	Note   string          `json:"note" validate:"max=5"`
}

func TestValidate(t *testing.T) {
	assert.Nil(t, Validate(tipInput{Amount: decimal.NewFromInt(10)}))

	errs := Validate(tipInput{Amount: decimal.Zero, Note: "too long"})
	assert.Equal(t, map[string]string{"amount": "money_positive", "note": "max"}, errs)
}

type bindInput struct {
	OrderID int64  `json:"order_id" binding:"required"`
	Status  string `form:"status" binding:"oneof=PAID FAILED"`
}

func TestFields_BindingErrorsUseRequestNames(t *testing.T) {
	var req bindInput
	err := binding.JSON.BindBody([]byte(`{"Status":"LOST"}`), &req)
	require.Error(t, err)
	assert.Equal(t, map[string]string{"order_id": "required", "status": "oneof"}, Fields(err))

	assert.Equal(t, map[string]string{"_": "unexpected EOF"}, Fields(errors.New("unexpected EOF")))
	assert.Nil(t, Fields(nil))
}
