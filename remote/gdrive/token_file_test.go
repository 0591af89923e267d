package gdrive

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/steamvault/steamvault/internal/testutil"
)

type sequenceTokenSource struct {
	tokens []string
	n      int
}

func (s *sequenceTokenSource) Token() (*oauth2.Token, error) {
	tok := &oauth2.Token{AccessToken: s.tokens[s.n], RefreshToken: "refresh"}
	if s.n < len(s.tokens)-1 {
		s.n++
	}

	return tok, nil
}

func readToken(t *testing.T, fn string) *oauth2.Token {
	t.Helper()

	b, err := os.ReadFile(fn)
	require.NoError(t, err)

	tok := &oauth2.Token{}
	require.NoError(t, json.Unmarshal(b, tok))

	return tok
}

func TestPersistingTokenSource(t *testing.T) {
	fn := filepath.Join(testutil.TempDirectory(t), "steamvault", "gdrive_token.json")

	ts := &persistingTokenSource{
		base:     &sequenceTokenSource{tokens: []string{"initial", "initial", "refreshed"}},
		filename: fn,
		last:     "initial",
	}

	tok, err := ts.Token()
	require.NoError(t, err)
	require.Equal(t, "initial", tok.AccessToken)

	_, err = os.Stat(fn)
	require.True(t, os.IsNotExist(err), "unchanged token must not be written")

	_, err = ts.Token()
	require.NoError(t, err)

	tok, err = ts.Token()
	require.NoError(t, err)
	require.Equal(t, "refreshed", tok.AccessToken)
	require.Equal(t, "refreshed", readToken(t, fn).AccessToken)
	require.Equal(t, "refresh", readToken(t, fn).RefreshToken)
}

func TestTokenSourceFromUserToken(t *testing.T) {
	dir := testutil.TempDirectory(t)
	fn := filepath.Join(dir, "token.json")

	require.NoError(t, writeTokenFile(fn, &oauth2.Token{AccessToken: "a", RefreshToken: "r"}))

	secrets := []byte(`{"installed":{"client_id":"id","client_secret":"secret","redirect_uris":["http://localhost"],"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`)

	_, err := tokenSourceFromUserToken(t.Context(), secrets, fn, scopes(&Options{})...)
	require.NoError(t, err)

	_, err = tokenSourceFromUserToken(t.Context(), []byte("{}"), fn, scopes(&Options{})...)
	require.Error(t, err)

	_, err = tokenSourceFromUserToken(t.Context(), secrets, filepath.Join(dir, "missing.json"), scopes(&Options{})...)
	require.Error(t, err)
}
