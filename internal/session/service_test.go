package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Rokatacaem/SistemaBillar/internal/sale"
)

func TestSettleValidation_SplitMustSumTo100(t *testing.T) {
	svc := &service{repo: nil, now: time.Now}

	cases := []struct {
		name     string
		payments []SplitPayment
	}{
		{"sums under", []SplitPayment{
			{Percentage: 60, Method: sale.MethodCash},
			{Percentage: 30, Method: sale.MethodCash},
		}},
		{"sums over", []SplitPayment{
			{Percentage: 60, Method: sale.MethodCash},
			{Percentage: 50, Method: sale.MethodCash},
		}},
		{"single payment", []SplitPayment{
			{Percentage: 100, Method: sale.MethodCash},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Settle(context.Background(), 1, SettleRequest{
				Mode:     ModeSplit,
				Payments: tc.payments,
			})
			require.ErrorIs(t, err, ErrInvalidSplit)
		})
	}
}
