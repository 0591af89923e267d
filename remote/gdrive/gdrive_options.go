package gdrive

// Options defines options for Google Drive-backed remote client.
type Options struct {
	// CredentialsFile is the name of the file with OAuth client secrets ("installed" application)
	// or service account credentials.
	CredentialsFile string `json:"credentialsFile,omitempty"`

	// CredentialsJSON specifies the raw JSON credentials, takes precedence over CredentialsFile.
	CredentialsJSON []byte `json:"-"`

	// TokenFile is the name of the file holding a previously authorized user token. When set,
	// the credentials are treated as OAuth client secrets and the token is refreshed as needed.
	TokenFile string `json:"tokenFile,omitempty"`

	// ReadOnly causes the connection to be opened with read-only scope to prevent accidental mutations.
	ReadOnly bool `json:"readOnly,omitempty"`
}
