// internal/wizard/draft.go
//
// A draft is the set of answers given so far, one JSON file per wizard step,
// stored in .arcwizard/draft/ so an interrupted session can be resumed.

package wizard

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kingrea/arc-wizard/internal/dao"
	"github.com/kingrea/arc-wizard/internal/deploy"
	"github.com/kingrea/arc-wizard/internal/fsutil"
	"github.com/kingrea/arc-wizard/internal/migration"
	"github.com/kingrea/arc-wizard/internal/reconcile"
	"github.com/kingrea/arc-wizard/internal/scheme"
)

// Draft file names
const (
	FileMeta    = "draft.json"
	FileNaming  = "naming.json"
	FileMembers = "members.json"
	FileSchemes = "schemes.json"
	FileParams  = "params.json"
)

// MarkerDeployed holds the deploy result once the organization is live.
const MarkerDeployed = ".deployed"

// Meta identifies a draft.
type Meta struct {
	ID      string    `json:"id"`
	Created time.Time `json:"created"`
	Network string    `json:"network,omitempty"`
}

// Draft manages the draft directory.
type Draft struct {
	dir string
	now func() time.Time
}

// New creates a draft manager rooted at dir.
func New(dir string) *Draft {
	return &Draft{dir: dir, now: time.Now}
}

// Dir returns the draft directory.
func (d *Draft) Dir() string {
	return d.dir
}

func (d *Draft) path(name string) string {
	return filepath.Join(d.dir, name)
}

// CurrentPhase detects the phase from the files on disk.
func (d *Draft) CurrentPhase() Phase {
	return DetectPhase(d.dir)
}

// Start discards any previous draft and begins a new one.
func (d *Draft) Start(network string) (Meta, error) {
	if err := d.Reset(); err != nil {
		return Meta{}, err
	}
	meta := Meta{ID: uuid.NewString(), Created: d.now().UTC(), Network: network}
	if err := fsutil.WriteJSON(d.path(FileMeta), meta); err != nil {
		return Meta{}, fmt.Errorf("wizard: start draft: %w", err)
	}
	return meta, nil
}

// Meta returns the draft identity, starting a draft if none exists.
func (d *Draft) Meta() (Meta, error) {
	var meta Meta
	err := fsutil.ReadJSON(d.path(FileMeta), &meta)
	if errors.Is(err, fs.ErrNotExist) {
		meta = Meta{ID: uuid.NewString(), Created: d.now().UTC()}
		if err := fsutil.WriteJSON(d.path(FileMeta), meta); err != nil {
			return Meta{}, fmt.Errorf("wizard: write draft meta: %w", err)
		}
		return meta, nil
	}
	if err != nil {
		return Meta{}, fmt.Errorf("wizard: read draft meta: %w", err)
	}
	return meta, nil
}

// SaveNaming stores the naming step. Saving any step invalidates a
// previously exported document.
func (d *Draft) SaveNaming(n dao.Naming) error {
	if err := d.save(FileNaming, n.Normalize()); err != nil {
		return err
	}
	return d.invalidateParams()
}

// LoadNaming returns the saved naming step and whether it exists.
func (d *Draft) LoadNaming() (dao.Naming, bool, error) {
	var n dao.Naming
	ok, err := d.load(FileNaming, &n)
	return n, ok, err
}

// SaveMembers stores the member list.
func (d *Draft) SaveMembers(ms dao.Members) error {
	if err := dao.SaveMembers(d.path(FileMembers), ms); err != nil {
		return fmt.Errorf("wizard: %w", err)
	}
	return d.invalidateParams()
}

// LoadMembers returns the saved member list, empty when none was saved.
func (d *Draft) LoadMembers() (dao.Members, error) {
	ms, err := dao.LoadMembers(d.path(FileMembers))
	if err != nil {
		return nil, fmt.Errorf("wizard: %w", err)
	}
	return ms, nil
}

// SaveSchemes stores the scheme editor state verbatim, bindings included.
func (d *Draft) SaveSchemes(st reconcile.State) error {
	if err := d.save(FileSchemes, st); err != nil {
		return err
	}
	return d.invalidateParams()
}

// LoadSchemes returns the saved editor state and whether it exists.
// Stored bindings whose parameters no longer match the preset are dropped.
func (d *Draft) LoadSchemes() (reconcile.State, bool, error) {
	var st reconcile.State
	ok, err := d.load(FileSchemes, &st)
	if err != nil || !ok {
		return reconcile.State{}, ok, err
	}
	if len(st.Schemes) == 0 {
		return reconcile.State{}, false, fmt.Errorf("wizard: %s: %w", FileSchemes, reconcile.ErrNoSchemes)
	}
	seen := map[scheme.Type]bool{}
	for _, s := range st.Schemes {
		if !s.Type.Valid() || seen[s.Type] {
			return reconcile.State{}, false, fmt.Errorf("wizard: %s: invalid scheme set", FileSchemes)
		}
		seen[s.Type] = true
	}
	for i, s := range st.Schemes {
		if !s.IsBound() {
			continue
		}
		custom, err := reconcile.IsCustom(s, st.Speed)
		if err != nil {
			return reconcile.State{}, false, fmt.Errorf("wizard: %s: %w", FileSchemes, err)
		}
		if custom {
			st.Schemes[i] = s.Unbind()
		}
	}
	return st, true, nil
}

// SaveParams stores the exported migration document.
func (d *Draft) SaveParams(p migration.Params) error {
	if err := migration.Save(d.path(FileParams), p); err != nil {
		return fmt.Errorf("wizard: %w", err)
	}
	return nil
}

// LoadParams returns the exported document and whether it exists.
func (d *Draft) LoadParams() (migration.Params, bool, error) {
	if !fileExists(d.dir, FileParams) {
		return migration.Params{}, false, nil
	}
	p, err := migration.Load(d.path(FileParams))
	if err != nil {
		return migration.Params{}, false, fmt.Errorf("wizard: %w", err)
	}
	return p, true, nil
}

// Seed replaces the draft with the answers contained in a migration
// document, so a saved document can be edited again. The speed is the one
// the document was built at; fallback is used when no speed reproduces it.
func (d *Draft) Seed(p migration.Params, fallback reconcile.Speed) error {
	schemes, err := p.Restore()
	if err != nil {
		return err
	}
	speed, ok := reconcile.InferSpeed(schemes)
	if !ok {
		speed = fallback
	}
	st, err := reconcile.Restore(speed, schemes)
	if err != nil {
		return fmt.Errorf("wizard: seed schemes: %w", err)
	}
	if _, err := d.Start(""); err != nil {
		return err
	}
	if err := d.save(FileNaming, p.Naming().Normalize()); err != nil {
		return err
	}
	if err := dao.SaveMembers(d.path(FileMembers), p.Members()); err != nil {
		return fmt.Errorf("wizard: %w", err)
	}
	return d.save(FileSchemes, st)
}

// MarkDeployed records the deploy result.
func (d *Draft) MarkDeployed(res deploy.Result) error {
	return d.save(MarkerDeployed, res)
}

// Deployment returns the deploy result once the draft has been deployed.
func (d *Draft) Deployment() (deploy.Result, bool, error) {
	var res deploy.Result
	ok, err := d.load(MarkerDeployed, &res)
	return res, ok, err
}

// Reset removes the draft directory (for starting fresh).
func (d *Draft) Reset() error {
	if err := os.RemoveAll(d.dir); err != nil {
		return fmt.Errorf("wizard: reset draft: %w", err)
	}
	return nil
}

func (d *Draft) invalidateParams() error {
	for _, name := range []string{FileParams, MarkerDeployed} {
		if err := os.Remove(d.path(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("wizard: invalidate %s: %w", name, err)
		}
	}
	return nil
}

func (d *Draft) save(name string, v any) error {
	if err := fsutil.WriteJSON(d.path(name), v); err != nil {
		return fmt.Errorf("wizard: save %s: %w", name, err)
	}
	return nil
}

func (d *Draft) load(name string, v any) (bool, error) {
	err := fsutil.ReadJSON(d.path(name), v)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		var syntax *json.SyntaxError
		if errors.As(err, &syntax) {
			return false, fmt.Errorf("wizard: %s is corrupt: %w", name, err)
		}
		return false, fmt.Errorf("wizard: load %s: %w", name, err)
	}
	return true, nil
}
