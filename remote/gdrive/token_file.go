package gdrive

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/steamvault/steamvault/internal/atomicfile"
)

// persistingTokenSource writes every newly issued token to a file so that the refreshed
// token is reused by the next invocation.
type persistingTokenSource struct {
	base     oauth2.TokenSource
	filename string

	mu   sync.Mutex
	last string // access token most recently written
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, errors.Wrap(err, "unable to obtain token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tok.AccessToken == s.last {
		return tok, nil
	}

	if err := writeTokenFile(s.filename, tok); err != nil {
		return nil, err
	}

	s.last = tok.AccessToken

	return tok, nil
}

func writeTokenFile(filename string, tok *oauth2.Token) error {
	b, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return errors.Wrap(err, "unable to serialize token")
	}

	return errors.Wrap(atomicfile.Write(filename, bytes.NewReader(b)), "unable to save token")
}
