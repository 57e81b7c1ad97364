package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusIs(t *testing.T) {
	assert := assert.New(t)

	var nilStatus *Status
	assert.True(nilStatus.Is(OK))
	assert.False(nilStatus.Is(IO))

	st := New(NameNotFound, "no such column: %s", "x")
	assert.True(st.Is(NameNotFound))
	assert.False(st.Is(OK))
	assert.Equal("no such column: x", st.Error())

	oom := OOMStatus()
	assert.True(oom.Is(OOM))
	assert.Equal(OOM.String(), oom.Error())
}

func TestCtxOOMIsSticky(t *testing.T) {
	assert := assert.New(t)

	c := NewCtx(nil)
	assert.False(c.OOM())
	assert.False(c.HasError())

	c.RaiseOOM()
	assert.True(c.OOM())
	assert.True(c.HasError())

	c.Reset()
	assert.True(c.OOM(), "Reset must never clear OOM")
	assert.True(c.HasError())
}

func TestCtxErrCountAccumulatesAndResets(t *testing.T) {
	assert := assert.New(t)

	c := NewCtx(nil)
	c.RaiseError(NameNotFound, "no such column: %s", "x")
	c.RaiseError(NameAmbiguous, "ambiguous column name: %s", "y")
	assert.Equal(2, c.ErrCount())
	assert.True(c.HasError())
	assert.Equal("ambiguous column name: y", c.Message())

	c.Reset()
	assert.Equal(0, c.ErrCount())
	assert.False(c.HasError())
}

func TestStickyFirstErrorWins(t *testing.T) {
	assert := assert.New(t)

	var s Sticky
	assert.Nil(s.Test())

	first := New(IO, "disk read failed")
	second := New(Corruption, "bad page")

	assert.Same(first, s.Set(first))
	assert.Same(first, s.Set(second), "second error must be dropped")
	assert.Same(first, s.Test())

	s.Clear()
	assert.Nil(s.Test())
	assert.Same(second, s.Set(second))
}
