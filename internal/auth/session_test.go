package auth_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/fivetwenty-io/jenkins-client/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_Apply(t *testing.T) {
	t.Parallel()

	t.Run("basic credentials", func(t *testing.T) {
		t.Parallel()

		session := auth.NewSession("admin", "api-token")
		req, err := http.NewRequest(http.MethodGet, "http://ci/api/json", nil)
		require.NoError(t, err)

		require.NoError(t, session.Apply(req))

		user, pass, ok := req.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "admin", user)
		assert.Equal(t, "api-token", pass)
	})

	t.Run("anonymous", func(t *testing.T) {
		t.Parallel()

		session := auth.NewSession("", "")
		req, err := http.NewRequest(http.MethodGet, "http://ci/api/json", nil)
		require.NoError(t, err)

		require.NoError(t, session.Apply(req))

		_, _, ok := req.BasicAuth()
		assert.False(t, ok)
	})

	t.Run("closed session", func(t *testing.T) {
		t.Parallel()

		session := auth.NewSession("admin", "api-token")
		require.NoError(t, session.Close())

		req, err := http.NewRequest(http.MethodGet, "http://ci/api/json", nil)
		require.NoError(t, err)
		require.ErrorIs(t, session.Apply(req), auth.ErrSessionClosed)
	})
}

func TestSession_Lifecycle(t *testing.T) {
	t.Parallel()

	session := auth.NewSession("admin", "api-token")
	assert.False(t, session.Established())

	u, err := url.Parse("http://ci.example.com/")
	require.NoError(t, err)

	session.SetCookies(u, []*http.Cookie{{Name: "JSESSIONID", Value: "abc"}})
	session.SetCrumb(auth.Crumb{Field: "Jenkins-Crumb", Value: "c1"})
	session.MarkEstablished()

	assert.True(t, session.Established())
	assert.Len(t, session.Cookies(u), 1)

	crumb, ok := session.Crumb()
	assert.True(t, ok)
	assert.Equal(t, "c1", crumb.Value)

	require.NoError(t, session.Close())

	assert.False(t, session.Established())
	assert.True(t, session.Closed())
	assert.Empty(t, session.Cookies(u))

	_, ok = session.Crumb()
	assert.False(t, ok)

	session.MarkEstablished()
	assert.False(t, session.Established())
}

func TestSession_Crumb(t *testing.T) {
	t.Parallel()

	session := auth.NewSession("", "")

	_, ok := session.Crumb()
	assert.False(t, ok)

	session.SetCrumb(auth.Crumb{Field: "Jenkins-Crumb", Value: "c1"})
	session.ClearCrumb()

	_, ok = session.Crumb()
	assert.False(t, ok)
	assert.False(t, session.CrumbDisabled())

	session.SetCrumb(auth.Crumb{Field: "Jenkins-Crumb", Value: "c2"})
	session.DisableCrumb()

	_, ok = session.Crumb()
	assert.False(t, ok)
	assert.True(t, session.CrumbDisabled())
}

func TestSession_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	session := auth.NewSession("admin", "api-token")
	done := make(chan bool)

	for _, value := range []string{"crumb-1", "crumb-2"} {
		go func() {
			for range 100 {
				session.SetCrumb(auth.Crumb{Field: "Jenkins-Crumb", Value: value})
			}

			done <- true
		}()
	}

	for range 2 {
		go func() {
			for range 100 {
				_, _ = session.Crumb()
			}

			done <- true
		}()
	}

	for range 4 {
		<-done
	}

	crumb, ok := session.Crumb()
	assert.True(t, ok)
	assert.True(t, crumb.Value == "crumb-1" || crumb.Value == "crumb-2")
}
