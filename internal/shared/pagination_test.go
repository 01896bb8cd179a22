package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClampLimit(t *testing.T) {
	require.Equal(t, 20, ClampLimit(0, 20, 200))
	require.Equal(t, 20, ClampLimit(-5, 20, 200))
	require.Equal(t, 50, ClampLimit(50, 20, 200))
	require.Equal(t, 200, ClampLimit(1000, 20, 200))
}

func TestSortColumnWhitelist(t *testing.T) {
	allowed := map[string]string{"name": "name", "price": "selling_price"}

	require.Equal(t, "selling_price", SortColumn("price", "name", allowed))
	require.Equal(t, "name", SortColumn("robert'); DROP TABLE items;--", "name", allowed))
	require.Equal(t, "name", SortColumn("", "name", allowed))
}

func TestSortDirection(t *testing.T) {
	require.Equal(t, "DESC", SortDirection("desc"))
	require.Equal(t, "DESC", SortDirection("DESC"))
	require.Equal(t, "ASC", SortDirection("asc"))
	require.Equal(t, "ASC", SortDirection("sideways"))
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(3, 25, 120)
	require.Equal(t, 5, p.TotalPages)
	require.Equal(t, 50, p.Offset())

	p = NewPagination(0, 0, 10)
	require.Equal(t, 1, p.Page)
	require.Equal(t, 20, p.PerPage)
	require.Equal(t, 1, p.TotalPages)
}
