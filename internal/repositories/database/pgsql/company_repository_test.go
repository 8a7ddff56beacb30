package pgsql

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompanyCurrencyQuery_FallsBackToGlobalCurrencies(t *testing.T) {
	query := strings.Join(strings.Fields(companyCurrencyQuery), " ")

	for _, flag := range []string{"is_default", "is_report"} {
		t.Run(flag, func(t *testing.T) {
			want := "WHERE (cur.company_id = c.id OR cur.company_id IS NULL) AND cur." + flag +
				" ORDER BY cur.company_id NULLS LAST, cur.id LIMIT 1)"
			assert.Contains(t, query, want)
		})
	}
	assert.NotContains(t, query, "WHERE cur.company_id = c.id AND")
}
