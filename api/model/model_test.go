package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/webedmilson/bancoCred/model"
)

func TestValidateRecordTransaction(t *testing.T) {
	tests := []struct {
		name    string
		input   RecordTransaction
		wantErr bool
	}{
		{"valid deposit", RecordTransaction{Type: "deposit", Amount: decimal.RequireFromString("10.50"), TargetAccountID: "acc_1"}, false},
		{"padded type", RecordTransaction{Type: " deposit ", Amount: decimal.RequireFromString("1"), TargetAccountID: "acc_1"}, false},
		{"unknown type", RecordTransaction{Type: "REFUND", Amount: decimal.RequireFromString("1")}, true},
		{"missing type", RecordTransaction{Amount: decimal.RequireFromString("1")}, true},
		{"exchange type", RecordTransaction{Type: "EXCHANGE_BUY", Amount: decimal.RequireFromString("1")}, true},
		{"zero amount", RecordTransaction{Type: "DEPOSIT"}, true},
		{"negative amount", RecordTransaction{Type: "DEPOSIT", Amount: decimal.RequireFromString("-3")}, true},
		{"too precise", RecordTransaction{Type: "DEPOSIT", Amount: decimal.RequireFromString("0.001")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.ValidateRecordTransaction()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRecordTransaction_ToOperation(t *testing.T) {
	in := RecordTransaction{Type: " transfer ", Amount: decimal.RequireFromString("5"), SourceAccountID: " acc_1", TargetAccountID: "acc_2 "}
	op := in.ToOperation()
	assert.Equal(t, model.Transfer, op.Type)
	assert.Equal(t, "acc_1", op.SourceAccountID)
	assert.Equal(t, "acc_2", op.TargetAccountID)

	unknown := RecordTransaction{Type: "refund", Amount: decimal.RequireFromString("5")}
	assert.Equal(t, model.TransactionType("refund"), unknown.ToOperation().Type)
}

func TestValidateExchange(t *testing.T) {
	assert.NoError(t, (&Exchange{Amount: decimal.RequireFromString("100"), Currency: "usd"}).ValidateExchange())
	assert.Error(t, (&Exchange{Amount: decimal.RequireFromString("100"), Currency: "XYZ"}).ValidateExchange())
	assert.Error(t, (&Exchange{Amount: decimal.RequireFromString("100"), Currency: "BRL"}).ValidateExchange())
	assert.Error(t, (&Exchange{Currency: "EUR"}).ValidateExchange())

	e := Exchange{Currency: " eur"}
	assert.Equal(t, model.EUR, e.ToCurrency())
}

func TestValidateOpenAccount(t *testing.T) {
	assert.NoError(t, (&OpenAccount{}).ValidateOpenAccount())
	assert.NoError(t, (&OpenAccount{Type: "SAVINGS"}).ValidateOpenAccount())
	assert.NoError(t, (&OpenAccount{Type: "savings"}).ValidateOpenAccount())
	assert.Error(t, (&OpenAccount{Type: "CHECKING"}).ValidateOpenAccount())
}
