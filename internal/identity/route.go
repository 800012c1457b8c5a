package identity

import "github.com/vovakirdan/codeshare-server/internal/keygen"

// Page is a navigation target.
type Page string

const (
	PageEditor   Page = "editor"
	PageSettings Page = "settings"
)

// Route is a page plus the room key it carries. Key may be empty.
type Route struct {
	Page Page
	Key  string
}

// Path renders the route as a URL path.
func (r Route) Path() string {
	if r.Key == "" {
		return "/" + string(r.Page)
	}
	return "/" + string(r.Page) + "/" + r.Key
}

// Resolve returns where a request for target must land given the local
// identity. The result equals target when no redirect is needed.
//
// An editor without a complete identity goes to settings for the same key.
// An editor without a key gets a fresh one.
func Resolve(target Route, local LocalIdentity) Route {
	if target.Page != PageEditor {
		return target
	}
	if !local.Complete() {
		return Route{Page: PageSettings, Key: target.Key}
	}
	if target.Key == "" {
		return Route{Page: PageEditor, Key: keygen.NewKey()}
	}
	return target
}

// AfterSave is the route taken once settings are saved: back to the editor
// for key, or a new room when there is none.
func AfterSave(key string) Route {
	if key == "" {
		key = keygen.NewKey()
	}
	return Route{Page: PageEditor, Key: key}
}
