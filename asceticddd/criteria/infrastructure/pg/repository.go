package pg

import (
	"context"
	"log/slog"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jinzhu/inflection"
	"github.com/pkg/errors"

	criteria "github.com/krew-solutions/ascetic-criteria-go/asceticddd/criteria/domain"
	"github.com/krew-solutions/ascetic-criteria-go/asceticddd/criteria/infrastructure/memory"
)

// Repository is a queryable source over one PostgreSQL table. Rows are
// scanned into T by column name; the compiled predicate, sort and page are
// applied in process.
type Repository[T any] struct {
	pool     *pgxpool.Pool
	table    string
	logger   *slog.Logger
	criteria []criteria.Option
}

type Option func(*options)

type options struct {
	table    string
	logger   *slog.Logger
	criteria []criteria.Option
}

func WithTable(name string) Option {
	return func(o *options) {
		o.table = name
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithCriteriaOptions passes compile options (registry, coercer, observer)
// to every query.
func WithCriteriaOptions(opts ...criteria.Option) Option {
	return func(o *options) {
		o.criteria = append(o.criteria, opts...)
	}
}

func NewRepository[T any](pool *pgxpool.Pool, opts ...Option) *Repository[T] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.table == "" {
		o.table = TableName(reflect.TypeFor[T]())
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return &Repository[T]{
		pool:     pool,
		table:    o.table,
		logger:   o.logger,
		criteria: append([]criteria.Option{criteria.WithLogger(o.logger)}, o.criteria...),
	}
}

func (r *Repository[T]) Table() string {
	return r.table
}

func (r *Repository[T]) EntityType() reflect.Type {
	return reflect.TypeFor[T]()
}

// Find loads the table and returns the page of rows q accepts. The query is
// compiled before any IO, so a bad query never touches the database.
func (r *Repository[T]) Find(ctx context.Context, q *criteria.Query[T]) (memory.Page[T], error) {
	if q == nil || q.Criteria == nil {
		return memory.Page[T]{}, errors.New("query has no criteria")
	}
	if _, err := q.Criteria.Compile(r.criteria...); err != nil {
		return memory.Page[T]{}, err
	}
	if _, err := criteria.CompileSort(reflect.TypeFor[T](), q.Sort, r.criteria...); err != nil {
		return memory.Page[T]{}, err
	}

	rows, err := r.load(ctx)
	if err != nil {
		return memory.Page[T]{}, err
	}
	return memory.Apply(rows, q, r.criteria...)
}

func (r *Repository[T]) FindDocument(ctx context.Context, doc *criteria.QueryDocument) (memory.Page[any], error) {
	q, err := criteria.QueryFromDocument[T](doc, r.criteria...)
	if err != nil {
		return memory.Page[any]{}, err
	}
	page, err := r.Find(ctx, q)
	if err != nil {
		return memory.Page[any]{}, err
	}
	return memory.Erase(page), nil
}

func (r *Repository[T]) load(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	started := time.Now()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "unable to acquire connection")
	}
	defer conn.Release()

	sql, args, err := r.selectStatement()
	if err != nil {
		return nil, errors.Wrapf(err, "build select %s", r.table)
	}
	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "query %s", r.table)
	}
	items, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[T])
	if err != nil {
		return nil, errors.Wrapf(err, "scan %s", r.table)
	}

	r.logger.Debug("rows loaded",
		slog.String("table", r.table),
		slog.Int("rows", len(items)),
		slog.Duration("elapsed", time.Since(started)),
	)
	return items, nil
}

var statements = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

func (r *Repository[T]) selectStatement() (string, []any, error) {
	return statements.Select("*").From(pgx.Identifier{r.table}.Sanitize()).ToSql()
}

// TableName derives the conventional table of an entity type: the
// snake_case plural of its name, e.g. OrderLine -> order_lines.
func TableName(t reflect.Type) string {
	words := splitWords(criteria.TypeName(t))
	if len(words) == 0 {
		return ""
	}
	words[len(words)-1] = inflection.Plural(words[len(words)-1])
	return strings.Join(words, "_")
}

// splitWords breaks a Go identifier into lower-case words, keeping
// acronyms together: HTTPServer -> http, server.
func splitWords(name string) []string {
	runes := []rune(name)
	var words []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		next := rune(0)
		if i+1 < len(runes) {
			next = runes[i+1]
		}
		boundary := unicode.IsUpper(cur) &&
			(unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && unicode.IsLower(next)))
		if boundary {
			words = append(words, strings.ToLower(string(runes[start:i])))
			start = i
		}
	}
	if start < len(runes) {
		words = append(words, strings.ToLower(string(runes[start:])))
	}
	return words
}
