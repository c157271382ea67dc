package engine

import (
	"testing"

	"github.com/shopspring/decimal"

	"campaign-scheduler/internal/customer"
)

func BenchmarkMatch(b *testing.B) {
	campaigns := []Campaign{
		{TemplateName: "Template A", Filter: customer.MaleCustomers, SendTime: sendAt, Priority: 1},
		{TemplateName: "Template B", Filter: customer.CustomersAbove45, SendTime: sendAt, Priority: 2},
		{TemplateName: "Template C", Filter: customer.CustomersInNewYork, SendTime: sendAt, Priority: 5},
		{TemplateName: "Template A", Filter: customer.CustomersDepositMoreThan100, SendTime: sendAt, Priority: 3},
		{TemplateName: "Template C", Filter: customer.NewCustomers, SendTime: sendAt, Priority: 4},
	}
	genders := []string{"Male", "Female"}
	cities := []string{"New York", "Boston", "Chicago"}
	customers := make([]customer.Customer, 10000)
	for i := range customers {
		customers[i] = customer.Customer{
			ID:            i + 1,
			Age:           18 + i%60,
			Gender:        genders[i%len(genders)],
			City:          cities[i%len(cities)],
			Deposit:       decimal.NewFromInt(int64(i % 250)),
			IsNewCustomer: i%7 == 0,
		}
	}

	eng := NewEngine()
	eng.BuildSnapshot(campaigns)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := eng.Match(customers); err != nil {
			b.Fatal(err)
		}
	}
}
