package build

import (
	"encoding/json"
	"fmt"
)

// Listener is a callback function that receives events during the build process.
type Listener func(fmt.Stringer)

func jsonString(v interface{}) string {
	b, _ := json.Marshal(map[string]interface{}{
		fmt.Sprintf("%T", v): v,
	})
	return string(b)
}

// EventTreeCreated is emitted when the package tree directory exists.
type EventTreeCreated struct {
	Root string `json:"root,omitempty"`
}

func (e EventTreeCreated) String() string { return jsonString(e) }

// EventControlWritten is emitted when DEBIAN/control is written.
type EventControlWritten struct {
	Path   string `json:"path,omitempty"`
	Fields int    `json:"fields"`
}

func (e EventControlWritten) String() string { return jsonString(e) }

// EventScriptWritten is emitted for each maintainer script installed.
type EventScriptWritten struct {
	Path  string `json:"path,omitempty"`
	Lines int    `json:"lines"`
}

func (e EventScriptWritten) String() string { return jsonString(e) }

// EventChangelogWritten is emitted when the compressed changelog is in place.
type EventChangelogWritten struct {
	Path    string `json:"path,omitempty"`
	Entries int    `json:"entries"`
}

func (e EventChangelogWritten) String() string { return jsonString(e) }

// EventFilePlaced is emitted when an input file is copied into the package tree.
type EventFilePlaced struct {
	Source      string `json:"source,omitempty"`
	Destination string `json:"destination,omitempty"`
	Overwritten bool   `json:"overwritten,omitempty"`
}

func (e EventFilePlaced) String() string { return jsonString(e) }

// EventArchiveBuilt is emitted when the archiver succeeded.
type EventArchiveBuilt struct {
	Package string `json:"package,omitempty"`
}

func (e EventArchiveBuilt) String() string { return jsonString(e) }

// EventArchiveSigned is emitted when the detached signature is written.
type EventArchiveSigned struct {
	Signature string `json:"signature,omitempty"`
}

func (e EventArchiveSigned) String() string { return jsonString(e) }
