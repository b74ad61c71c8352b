package application

import (
	"errors"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

type stubController struct {
	key string
	tag string
}

func (c stubController) Register(*mux.Router) {}
func (c stubController) Key() string          { return c.key }

type stubModule struct{ err error }

func (m stubModule) Name() string { return "stub" }
func (m stubModule) Register(app Application) error {
	if m.err != nil {
		return m.err
	}
	app.RegisterControllers(stubController{key: "/stub"})
	return nil
}

func TestRegisterControllers_KeepsOrderAndReplacesByKey(t *testing.T) {
	app := New(&ApplicationOptions{})
	app.RegisterControllers(
		stubController{key: "/a", tag: "first"},
		stubController{key: "/b"},
		stubController{key: "/a", tag: "second"},
	)

	got := app.Controllers()
	require.Len(t, got, 2)
	require.Equal(t, "/a", got[0].Key())
	require.Equal(t, "second", got[0].(stubController).tag)
	require.Equal(t, "/b", got[1].Key())
}

func TestRegisterModules(t *testing.T) {
	app := New(&ApplicationOptions{})
	require.NotNil(t, app.EventPublisher())
	require.NoError(t, app.RegisterModules(stubModule{}))
	require.Len(t, app.Controllers(), 1)

	boom := errors.New("boom")
	require.ErrorIs(t, app.RegisterModules(stubModule{err: boom}), boom)
}
