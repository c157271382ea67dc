package customer

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "customers.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCustomers_Success(t *testing.T) {
	path := writeCSV(t, "Id,Age,Gender,City,Deposit,IsNewCustomer\n"+
		"1,30,Male,New York,100.50,1\n"+
		"2,25,Female,Los Angeles,200.75,0\r\n"+
		"\n")

	got, err := LoadCustomers(path)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 1, got[0].ID)
	assert.Equal(t, 30, got[0].Age)
	assert.Equal(t, "Male", got[0].Gender)
	assert.Equal(t, "New York", got[0].City)
	assert.True(t, got[0].Deposit.Equal(decimal.RequireFromString("100.50")))
	assert.True(t, got[0].IsNewCustomer)

	assert.Equal(t, 2, got[1].ID)
	assert.Equal(t, "Los Angeles", got[1].City)
	assert.True(t, got[1].Deposit.Equal(decimal.RequireFromString("200.75")))
	assert.False(t, got[1].IsNewCustomer)
}

func TestLoadCustomers_HeaderOnly(t *testing.T) {
	got, err := LoadCustomers(writeCSV(t, "Id,Age,Gender,City,Deposit,IsNewCustomer\n"))
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestLoadCustomers_FormatErrors(t *testing.T) {
	const header = "Id,Age,Gender,City,Deposit,IsNewCustomer\n"
	tests := []struct {
		name     string
		body     string
		wantLine int
		wantText string
	}{
		{"five fields", "1,30,Male,New York,100.50,1\n2,25,Female,Los Angeles,200.75", 3, "2,25,Female,Los Angeles,200.75"},
		{"seven fields", "1,30,Male,New York,100.50,1,x", 2, "1,30,Male,New York,100.50,1,x"},
		{"bad deposit", "1,30,Male,New York,invalid,1", 2, "1,30,Male,New York,invalid,1"},
		{"bad id", "x,30,Male,New York,1,1", 2, "x,30,Male,New York,1,1"},
		{"bad age", "1,old,Male,New York,1,1", 2, "1,old,Male,New York,1,1"},
		{"bad flag", "1,30,Male,New York,1,yes", 2, "1,30,Male,New York,1,yes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadCustomers(writeCSV(t, header+tt.body))
			assert.Nil(t, got)

			var fe *FormatError
			require.True(t, errors.As(err, &fe), "want FormatError, got %v", err)
			assert.Equal(t, tt.wantLine, fe.Line)
			assert.Equal(t, tt.wantText, fe.Text)
			assert.Contains(t, err.Error(), tt.wantText)
		})
	}
}

func TestLoadCustomers_FieldCountMessage(t *testing.T) {
	_, err := LoadCustomers(writeCSV(t, "h\n1,2,3,4,5"))
	assert.ErrorContains(t, err, "does not contain exactly 6 values")
}

func TestLoadCustomers_NotFound(t *testing.T) {
	_, err := LoadCustomers(filepath.Join(t.TempDir(), "nonexistentfile.csv"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorContains(t, err, "nonexistentfile.csv")
}
