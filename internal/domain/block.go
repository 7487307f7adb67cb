package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Zone is a named placement slot owning an independently ordered collection of blocks.
type Zone string

const (
	ZoneTop    Zone = "top"
	ZoneMiddle Zone = "middle"
	ZoneBottom Zone = "bottom"
)

// Zones returns every placement zone in display order.
func Zones() []Zone {
	return []Zone{ZoneTop, ZoneMiddle, ZoneBottom}
}

// ParseZone validates a zone name coming from the presentation layer or the wire.
func ParseZone(s string) (Zone, error) {
	z := Zone(strings.ToLower(strings.TrimSpace(s)))
	if !z.Valid() {
		return "", Validation("parse zone", fmt.Errorf("%w: %q", ErrUnknownZone, s))
	}
	return z, nil
}

func (z Zone) Valid() bool {
	switch z {
	case ZoneTop, ZoneMiddle, ZoneBottom:
		return true
	}
	return false
}

// Title is the capitalized zone name used in notices ("Top ads saved successfully!").
func (z Zone) Title() string {
	if z == "" {
		return ""
	}
	return strings.ToUpper(string(z[:1])) + string(z[1:])
}

// Site is the tenant/domain a block belongs to (e.g. "a1satta.pro").
type Site string

// ephemeralPrefix marks locally generated identities. Server ids never carry it.
const ephemeralPrefix = "tmp-"

// Identity is either a stable server-issued id or a locally generated temp id.
// The zero value is neither and never matches a stored block.
type Identity struct {
	id     string
	tempID string
}

// Persisted returns a server-issued identity.
func Persisted(id string) Identity { return Identity{id: id} }

// Ephemeral returns a locally generated identity for a block not saved yet.
func Ephemeral(tempID string) Identity { return Identity{tempID: tempID} }

// IdentityFromKey reverses Key: temp keys become Ephemeral, anything else Persisted.
func IdentityFromKey(key string) Identity {
	if strings.HasPrefix(key, ephemeralPrefix) {
		return Ephemeral(key)
	}
	return Persisted(key)
}

// NewTempID builds an ephemeral key in the "tmp-<zone>-<seq>-<suffix>" shape.
func NewTempID(zone Zone, seq uint64, suffix string) string {
	return fmt.Sprintf("%s%s-%d-%s", ephemeralPrefix, zone, seq, suffix)
}

func (i Identity) IsPersisted() bool { return i.id != "" }
func (i Identity) IsZero() bool      { return i.id == "" && i.tempID == "" }

// ID returns the persisted id, or "" for ephemeral identities.
func (i Identity) ID() string { return i.id }

// Key is the single string used to address a block: id if persisted, temp id otherwise.
func (i Identity) Key() string {
	if i.id != "" {
		return i.id
	}
	return i.tempID
}

func (i Identity) String() string {
	if i.IsPersisted() {
		return "persisted:" + i.id
	}
	return "ephemeral:" + i.tempID
}

type identityJSON struct {
	ID     string `json:"id,omitempty"`
	TempID string `json:"tempId,omitempty"`
}

func (i Identity) MarshalJSON() ([]byte, error) {
	return json.Marshal(identityJSON{ID: i.id, TempID: i.tempID})
}

func (i *Identity) UnmarshalJSON(data []byte) error {
	var v identityJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	i.id, i.tempID = v.ID, v.TempID
	return nil
}

// Block is one ad: a unit of rich HTML content placed in a zone of a site.
type Block struct {
	Identity Identity `json:"identity"`
	Zone     Zone     `json:"zone"`
	Order    int      `json:"order"`
	Content  string   `json:"content"`
	Site     Site     `json:"site"`
}

// AdRecord is the wire shape of an ad. Servers may answer with either "id" or
// "_id"; Block() folds both into the canonical identity.
type AdRecord struct {
	ID       string `json:"id,omitempty"`
	MongoID  string `json:"_id,omitempty"`
	Content  string `json:"content"`
	Position Zone   `json:"position"`
	Order    int    `json:"order"`
	Site     Site   `json:"site"`
}

// Block normalizes a wire record into a Block with a persisted identity.
func (r AdRecord) Block() Block {
	id := r.ID
	if id == "" {
		id = r.MongoID
	}
	b := Block{Zone: r.Position, Order: r.Order, Content: r.Content, Site: r.Site}
	if id != "" {
		b.Identity = Persisted(id)
	}
	return b
}

// RecordOf builds the outgoing payload for a block. Ephemeral blocks go out
// without an id so the server assigns one.
func RecordOf(b Block) AdRecord {
	return AdRecord{
		MongoID:  b.Identity.ID(),
		Content:  b.Content,
		Position: b.Zone,
		Order:    b.Order,
		Site:     b.Site,
	}
}

// AdsRepository is the persistence collaborator: the remote ads API, or the
// SQL/Mongo stores behind it.
type AdsRepository interface {
	// List returns every block of a site, ordered by zone then order.
	List(ctx context.Context, site Site) ([]Block, error)

	// UpsertBatch replaces the whole zone of a site with blocks and returns the
	// canonical zone list carrying server-assigned identities.
	UpsertBatch(ctx context.Context, site Site, zone Zone, blocks []Block) ([]Block, error)

	// Delete removes one persisted block.
	Delete(ctx context.Context, id string) error
}
