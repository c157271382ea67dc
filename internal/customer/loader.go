package customer

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const fieldCount = 6

var ErrNotFound = errors.New("customer source not found")

// FormatError names the offending record of a malformed customer file.
type FormatError struct {
	Line int    // 1-based, header included
	Text string // raw line
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("customers: line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

var errFieldCount = fmt.Errorf("line does not contain exactly %d values", fieldCount)

// LoadCustomers reads "Id,Age,Gender,City,Deposit,IsNewCustomer" records,
// skipping the header line. Any malformed record fails the whole load.
func LoadCustomers(path string) ([]Customer, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		log.Error().Err(err).Str("path", path).Msg("open customers")
		return nil, err
	}
	defer f.Close()

	var (
		out    []Customer
		lineNo int
	)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if lineNo == 1 || strings.TrimSpace(line) == "" {
			continue // header, trailing blanks
		}
		c, err := parseLine(line)
		if err != nil {
			fe := &FormatError{Line: lineNo, Text: line, Err: err}
			log.Error().Err(fe).Str("path", path).Msg("malformed customer record")
			return nil, fe
		}
		out = append(out, c)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read customers %s: %w", path, err)
	}
	if out == nil {
		out = []Customer{}
	}
	log.Debug().Str("path", path).Int("customers", len(out)).Msg("customers loaded")
	return out, nil
}

func parseLine(line string) (Customer, error) {
	v := strings.Split(line, ",")
	if len(v) != fieldCount {
		return Customer{}, errFieldCount
	}
	id, err := strconv.Atoi(strings.TrimSpace(v[0]))
	if err != nil {
		return Customer{}, fmt.Errorf("id: %w", err)
	}
	age, err := strconv.Atoi(strings.TrimSpace(v[1]))
	if err != nil {
		return Customer{}, fmt.Errorf("age: %w", err)
	}
	dep, err := decimal.NewFromString(strings.TrimSpace(v[4]))
	if err != nil {
		return Customer{}, fmt.Errorf("deposit: %w", err)
	}
	var isNew bool
	switch strings.TrimSpace(v[5]) {
	case "1":
		isNew = true
	case "0":
	default:
		return Customer{}, fmt.Errorf("is_new_customer: want 0 or 1, got %q", v[5])
	}
	return Customer{
		ID:            id,
		Age:           age,
		Gender:        v[2],
		City:          v[3],
		Deposit:       dep,
		IsNewCustomer: isNew,
	}, nil
}
