package model

import (
	"bytes"
	"strconv"

	"github.com/shopspring/decimal"
)

// Bill задаёт номинал купюры, которую принимает и выдаёт кофемашина.
type Bill int64

// Номиналы купюр.
const (
	FiveThousand Bill = 5000
	TwoThousand  Bill = 2000
	OneThousand  Bill = 1000
	FiveHundred  Bill = 500
	TwoHundred   Bill = 200
	OneHundred   Bill = 100
	Fifty        Bill = 50
)

// Bills перечисляет номиналы строго по убыванию.
var Bills = []Bill{FiveThousand, TwoThousand, OneThousand, FiveHundred, TwoHundred, OneHundred, Fifty}

// Decimal возвращает номинал в виде денежной суммы.
func (b Bill) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(b))
}

// BillCount хранит количество купюр одного номинала.
type BillCount struct {
	Bill  Bill
	Count int64
}

// Change описывает разложение суммы по номиналам в порядке убывания.
type Change []BillCount

// Count возвращает количество купюр указанного номинала.
func (c Change) Count(b Bill) int64 {
	for _, bc := range c {
		if bc.Bill == b {
			return bc.Count
		}
	}
	return 0
}

// Sum возвращает сумму, которую составляют купюры разложения.
func (c Change) Sum() decimal.Decimal {
	sum := decimal.Zero
	for _, bc := range c {
		sum = sum.Add(bc.Bill.Decimal().Mul(decimal.NewFromInt(bc.Count)))
	}
	return sum
}

// MarshalJSON кодирует разложение объектом {"5000": 0, ...}, сохраняя порядок номиналов.
func (c Change) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, bc := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strconv.FormatInt(int64(bc.Bill), 10))
		buf.WriteString(`":`)
		buf.WriteString(strconv.FormatInt(bc.Count, 10))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
