package common

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
)

// FindByID читает одну строку таблицы по первичному ключу в T.
// columns перечисляются явно, чтобы новая колонка в схеме не ломала сканирование.
func FindByID[T any](ctx context.Context, q sqlx.QueryerContext, table, columns string, id any, notFound error) (*T, error) {
	var out T
	query := "SELECT " + columns + " FROM " + table + " WHERE id = $1"
	if err := sqlx.GetContext(ctx, q, &out, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound
		}
		return nil, fmt.Errorf("%s: find by id %w", table, err)
	}
	return &out, nil
}

// BatchInserter копит строки и отправляет их пачками в одном INSERT.
type BatchInserter struct {
	exec    sqlx.ExecerContext
	prefix  string
	suffix  string
	width   int
	maxRows int
	rows    int
	args    []any
}

// NewBatchInserter готовит вставку в prefix ("INSERT INTO t (a, b)") по width колонок.
// suffix дописывается после VALUES, например "ON CONFLICT DO NOTHING".
func NewBatchInserter(exec sqlx.ExecerContext, prefix, suffix string, width, maxRows int) *BatchInserter {
	if maxRows <= 0 {
		maxRows = 100
	}
	return &BatchInserter{
		exec:    exec,
		prefix:  prefix,
		suffix:  suffix,
		width:   width,
		maxRows: maxRows,
		args:    make([]any, 0, width*maxRows),
	}
}

// Add ставит строку в очередь; при заполнении пачки она уходит в базу.
func (b *BatchInserter) Add(ctx context.Context, row ...any) error {
	if len(row) != b.width {
		return fmt.Errorf("batch insert: ожидалось %d значений, получено %d", b.width, len(row))
	}
	b.args = append(b.args, row...)
	b.rows++
	if b.rows == b.maxRows {
		return b.Flush(ctx)
	}
	return nil
}

// Flush отправляет накопленные строки. Пустая очередь не даёт запроса.
func (b *BatchInserter) Flush(ctx context.Context) error {
	if b.rows == 0 {
		return nil
	}
	if _, err := b.exec.ExecContext(ctx, b.statement(), b.args...); err != nil {
		return fmt.Errorf("batch insert: %w", err)
	}
	b.args = b.args[:0]
	b.rows = 0
	return nil
}

func (b *BatchInserter) statement() string {
	groups := make([]string, b.rows)
	cells := make([]string, b.width)
	n := 1
	for r := range groups {
		for c := range cells {
			cells[c] = "$" + strconv.Itoa(n)
			n++
		}
		groups[r] = "(" + strings.Join(cells, ", ") + ")"
	}

	stmt := b.prefix + " VALUES " + strings.Join(groups, ", ")
	if b.suffix != "" {
		stmt += " " + b.suffix
	}
	return stmt
}

// WithTransaction выполняет fn в транзакции: ошибка или паника откатывают её.
func WithTransaction(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && err != nil {
			err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}
