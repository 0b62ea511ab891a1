package object

import (
	"testing"

	"github.com/mprimi/golox/pkg/value"
	"github.com/stretchr/testify/require"
)

func TestInternIsIdempotentByContent(t *testing.T) {
	table := value.NewTable()
	a := Intern(table, "hello", nil)
	b := Intern(table, "hello", nil)
	require.Same(t, a, b, "interning the same content twice must return the same object")

	c := Intern(table, "world", nil)
	require.NotSame(t, a, c)
}

func TestInternDistinctTablesDoNotShareIdentity(t *testing.T) {
	t1 := value.NewTable()
	t2 := value.NewTable()
	a := Intern(t1, "abc", nil)
	b := Intern(t2, "abc", nil)
	require.NotSame(t, a, b)
}

func TestDisplayFormatsEveryValueKind(t *testing.T) {
	table := value.NewTable()
	require.Equal(t, "nil", Display(value.Nil()))
	require.Equal(t, "true", Display(value.Bool(true)))
	require.Equal(t, "false", Display(value.Bool(false)))
	require.Equal(t, "3", Display(value.Number(3)))
	require.Equal(t, "3.5", Display(value.Number(3.5)))

	s := Intern(table, "hi", nil)
	require.Equal(t, "hi", Display(value.FromObj(s)))

	fn := NewFunction()
	require.Equal(t, "<script>", Display(value.FromObj(fn)))
	fn.Name = Intern(table, "add", nil)
	require.Equal(t, "<fn add>", Display(value.FromObj(fn)))

	class := NewClass(Intern(table, "Point", nil))
	require.Equal(t, "Point", Display(value.FromObj(class)))

	inst := NewInstance(class)
	require.Equal(t, "<Point instance>", Display(value.FromObj(inst)))
}

func TestUpvalueOpenThenClose(t *testing.T) {
	u := NewUpvalue(4)
	require.True(t, u.Open)
	require.Equal(t, 4, u.Slot)

	u.Close(value.Number(9))
	require.False(t, u.Open)
	require.Equal(t, value.Number(9), u.Closed)
}

func TestClosureAllocatesOneUpvalueSlotPerCount(t *testing.T) {
	fn := NewFunction()
	fn.UpvalueCount = 2
	c := NewClosure(fn)
	require.Len(t, c.Upvalues, 2)
}

func TestClassMethodsTableStartsEmpty(t *testing.T) {
	table := value.NewTable()
	class := NewClass(Intern(table, "Animal", nil))
	require.Equal(t, 0, class.Methods.Count())
}
