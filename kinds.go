package dbdriver

const (
	FieldURL      = "url"
	FieldToken    = "token"
	FieldUsername = "username"
)

// capability describes what a kind needs and what it offers.
type capability struct {
	Required []string
	// UniformSQL marks kinds whose raw client is wrapped in SQLiteDriver.
	UniformSQL bool
}

type kindEntry struct {
	capability
	message string
	build   func(cfg ConnectionConfig, o *options) Queryable
}

var kindTable = map[Kind]kindEntry{
	KindRqlite: {
		capability: capability{Required: []string{FieldURL}, UniformSQL: true},
		message:    "RQLite URL is required",
		build: func(cfg ConnectionConfig, o *options) Queryable {
			return NewRqlite(cfg.URL, cfg.Username, cfg.Password, o.transport())
		},
	},
	KindValtown: {
		capability: capability{Required: []string{FieldToken}, UniformSQL: true},
		message:    "Valtown token is required",
		build: func(cfg ConnectionConfig, o *options) Queryable {
			return NewValtown(cfg.Token, o.transport())
		},
	},
	KindCloudflareD1: {
		capability: capability{UniformSQL: true},
		build: func(cfg ConnectionConfig, o *options) Queryable {
			return NewCloudflareD1(o.proxyOrigin+D1ProxyPath, map[string]string{
				"Authorization": "Bearer " + cfg.Token,
				"x-account-id":  cfg.Username,
				"x-database-id": cfg.Database,
			}, o.transport())
		},
	},
	KindStarbase: {
		capability: capability{Required: []string{FieldURL, FieldToken}, UniformSQL: true},
		message:    "Starbase URL and token are required",
		build: func(cfg ConnectionConfig, o *options) Queryable {
			return NewStarbase(cfg.URL, cfg.Token, o.transport())
		},
	},
	KindCloudflareWAE: {
		capability: capability{Required: []string{FieldUsername, FieldToken}, UniformSQL: false},
		message:    "Cloudflare WAE username and token are required",
		build: func(cfg ConnectionConfig, o *options) Queryable {
			return NewCloudflareWAE(cfg.Username, cfg.Token, o.transport())
		},
	},
	KindTurso: {
		capability: capability{Required: []string{FieldURL, FieldToken}, UniformSQL: true},
		message:    "Turso URL and token are required",
		build: func(cfg ConnectionConfig, o *options) Queryable {
			return NewTurso(cfg.URL, cfg.Token, true, o.transport())
		},
	},
}

// capabilities returns the entry for a kind. Unknown kinds report the turso
// entry, matching NewDriver's fallback.
func capabilities(k Kind) capability {
	k, _ = ParseKind(string(k))
	return kindTable[k].capability
}

func missingFields(cfg ConnectionConfig, required []string) []string {
	var missing []string
	for _, f := range required {
		var v string
		switch f {
		case FieldURL:
			v = cfg.URL
		case FieldToken:
			v = cfg.Token
		case FieldUsername:
			v = cfg.Username
		}
		if !present(v) {
			missing = append(missing, f)
		}
	}
	return missing
}
