package main

import dbdriver "dbstudio"

type baseRequest struct {
	ConnectionRef string                    `json:"connectionRef"`
	Connection    dbdriver.ConnectionConfig `json:"connection"`
}

type queryRequest struct {
	ConnectionRef string                    `json:"connectionRef"`
	Connection    dbdriver.ConnectionConfig `json:"connection"`
	Statement     string                    `json:"statement"`
}

type transactionRequest struct {
	ConnectionRef string                    `json:"connectionRef"`
	Connection    dbdriver.ConnectionConfig `json:"connection"`
	Statements    []string                  `json:"statements"`
}

type tableRequest struct {
	ConnectionRef string                    `json:"connectionRef"`
	Connection    dbdriver.ConnectionConfig `json:"connection"`
	Table         string                    `json:"table"`
}

type sampleRequest struct {
	ConnectionRef string                    `json:"connectionRef"`
	Connection    dbdriver.ConnectionConfig `json:"connection"`
	Table         string                    `json:"table"`
	Limit         int                       `json:"limit"`
}

type profileRequest struct {
	ConnectionRef string                    `json:"connectionRef"`
	Connection    dbdriver.ConnectionConfig `json:"connection"`
	Table         string                    `json:"table"`
	Options       dbdriver.ProfileOptions   `json:"options"`
}

type createConnectionRequest struct {
	Name       string                    `json:"name"`
	Connection dbdriver.ConnectionConfig `json:"connection"`
}

// connectionView is a saved connection as returned over HTTP. Secrets are
// replaced by presence flags.
type connectionView struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Driver      dbdriver.Kind `json:"driver"`
	URL         string        `json:"url,omitempty"`
	Username    string        `json:"username,omitempty"`
	Database    string        `json:"database,omitempty"`
	HasToken    bool          `json:"hasToken"`
	HasPassword bool          `json:"hasPassword"`
	CreatedAt   string        `json:"createdAt"`
	UpdatedAt   string        `json:"updatedAt"`
}
