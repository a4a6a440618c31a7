package services

import (
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// NextNumber allocates the next document number for one entity kind in
// one year, formatted <year>-<4 digit seq>. Invoices and waybills are
// independent counters: each calls this with its own model and column.
// The sequence is one past the highest number already issued for the
// year; if the last number does not parse, fall back to row count + 1.
// Numbers are assigned only at creation and a unique index on the
// column enforces global uniqueness.
func NextNumber(tx *gorm.DB, year int, model any, column string) (string, error) {
	prefix := strconv.Itoa(year) + "-"
	var numbers []string
	if err := tx.Model(model).
		Where(column+" LIKE ?", prefix+"%").
		Order(column + " desc").
		Limit(1).
		Pluck(column, &numbers).Error; err != nil {
		return "", err
	}
	seq := 0
	if len(numbers) > 0 {
		last := numbers[0]
		if n, err := strconv.Atoi(last[strings.LastIndex(last, "-")+1:]); err == nil {
			seq = n
		} else {
			var count int64
			if err := tx.Model(model).Where(column+" LIKE ?", prefix+"%").Count(&count).Error; err != nil {
				return "", err
			}
			seq = int(count)
		}
	}
	return fmt.Sprintf("%d-%04d", year, seq+1), nil
}
