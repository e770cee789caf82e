package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugFromFragment(t *testing.T) {
	assert.Equal(t, "web", SlugFromFragment("#web"))
	assert.Equal(t, "web", SlugFromFragment(" web "))
	assert.Equal(t, "", SlugFromFragment("#"))
	assert.Equal(t, "", SlugFromFragment(""))
}

func TestFormState(t *testing.T) {
	state, err := Form{Fragment: "#web", MinTick: "3", MaxTick: " 9"}.State()
	require.NoError(t, err)
	assert.Equal(t, "web", state.Slug)
	assert.Equal(t, 3, state.FromTick)
	require.NotNil(t, state.ToTick)
	assert.Equal(t, 9, *state.ToTick)
}

func TestFormStateErrors(t *testing.T) {
	_, err := Form{Fragment: "", MinTick: "x", MaxTick: "1"}.State()
	assert.ErrorIs(t, err, ErrNoSelection)

	_, err = Form{Fragment: "#web", MinTick: "x", MaxTick: "1"}.State()
	assert.ErrorIs(t, err, ErrInvalidTickBounds)

	_, err = Form{Fragment: "#web", MinTick: "1", MaxTick: ""}.State()
	assert.ErrorIs(t, err, ErrInvalidTickBounds)
}

func TestParams(t *testing.T) {
	to := 9
	state := State{Slug: "web", FromTick: 3, ToTick: &to}

	params := state.Params(false)
	assert.Equal(t, "web", params.Get(ParamService))
	assert.Equal(t, "3", params.Get(ParamFromTick))
	assert.Equal(t, "10", params.Get(ParamToTick))

	params = state.Params(true)
	assert.False(t, params.Has(ParamToTick))
	assert.Equal(t, "3", params.Get(ParamFromTick))
}

func TestDefaultBounds(t *testing.T) {
	minTick, maxTick := DefaultBounds(100, false)
	assert.Equal(t, 70, minTick)
	assert.Equal(t, 100, maxTick)

	minTick, maxTick = DefaultBounds(100, true)
	assert.Equal(t, 69, minTick)
	assert.Equal(t, 99, maxTick)

	minTick, maxTick = DefaultBounds(5, false)
	assert.Equal(t, 0, minTick)
	assert.Equal(t, 5, maxTick)
}
