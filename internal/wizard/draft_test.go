package wizard

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/go-cmp/cmp"

	"github.com/kingrea/arc-wizard/internal/dao"
	"github.com/kingrea/arc-wizard/internal/deploy"
	"github.com/kingrea/arc-wizard/internal/migration"
	"github.com/kingrea/arc-wizard/internal/reconcile"
)

func newDraft(t *testing.T) *Draft {
	t.Helper()
	d := New(filepath.Join(t.TempDir(), "draft"))
	d.now = func() time.Time { return time.Date(2020, 5, 6, 7, 8, 9, 0, time.UTC) }
	return d
}

func TestPhaseHelpers(t *testing.T) {
	if PhaseNaming.Next() != PhaseMembers || PhaseDeployed.Next() != PhaseDeployed {
		t.Fatalf("unexpected Next ordering")
	}
	if PhaseNone.IsResumable() || PhaseDeployed.IsResumable() || !PhaseSchemes.IsResumable() {
		t.Fatalf("unexpected resumable flags")
	}
	if PhaseReview.String() != "review" || Phase(42).String() != "unknown" {
		t.Fatalf("unexpected phase names")
	}
}

func TestDetectPhaseFollowsDraftFiles(t *testing.T) {
	d := newDraft(t)
	if got := d.CurrentPhase(); got != PhaseNone {
		t.Fatalf("empty draft phase = %s", got)
	}
	meta, err := d.Start("private")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if meta.ID == "" || meta.Network != "private" {
		t.Fatalf("unexpected meta %+v", meta)
	}
	if got := d.CurrentPhase(); got != PhaseNaming {
		t.Fatalf("phase after start = %s", got)
	}
	if err := d.SaveNaming(dao.Naming{OrgName: "Alpha", TokenName: "Alpha Token", TokenSymbol: "alp"}); err != nil {
		t.Fatalf("save naming: %v", err)
	}
	if got := d.CurrentPhase(); got != PhaseMembers {
		t.Fatalf("phase after naming = %s", got)
	}
	m, _ := dao.ParseMember("0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1", "10", "")
	if err := d.SaveMembers(dao.Members{m}); err != nil {
		t.Fatalf("save members: %v", err)
	}
	if got := d.CurrentPhase(); got != PhaseSchemes {
		t.Fatalf("phase after members = %s", got)
	}
	if err := d.SaveSchemes(reconcile.NewState()); err != nil {
		t.Fatalf("save schemes: %v", err)
	}
	if got := d.CurrentPhase(); got != PhaseReview {
		t.Fatalf("phase after schemes = %s", got)
	}
	if err := d.MarkDeployed(deploy.Result{Name: "Alpha", Avatar: common.HexToAddress("0x01")}); err != nil {
		t.Fatalf("mark deployed: %v", err)
	}
	if got := d.CurrentPhase(); got != PhaseDeployed {
		t.Fatalf("phase after deploy = %s", got)
	}
	res, ok, err := d.Deployment()
	if err != nil || !ok || res.Avatar != common.HexToAddress("0x01") {
		t.Fatalf("deployment: %+v %v %v", res, ok, err)
	}
	// Editing an earlier step drops the deployed marker.
	if err := d.SaveNaming(dao.Naming{OrgName: "Beta", TokenName: "Beta Token", TokenSymbol: "BET"}); err != nil {
		t.Fatalf("save naming: %v", err)
	}
	if got := d.CurrentPhase(); got != PhaseReview {
		t.Fatalf("phase after re-edit = %s", got)
	}
	if err := d.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if got := d.CurrentPhase(); got != PhaseNone {
		t.Fatalf("phase after reset = %s", got)
	}
}

func TestSchemesRoundTripKeepsBindings(t *testing.T) {
	d := newDraft(t)
	st, err := reconcile.NewState().SetToggle(reconcile.ToggleRewardVoters, false)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if err := d.SaveSchemes(st); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, ok, err := d.LoadSchemes()
	if err != nil || !ok {
		t.Fatalf("load: %v %v", ok, err)
	}
	if diff := cmp.Diff(st, loaded); diff != "" {
		t.Fatalf("state changed across save:\n%s", diff)
	}
	naming, ok, err := d.LoadNaming()
	if err != nil || ok || naming != (dao.Naming{}) {
		t.Fatalf("missing naming should report not found, got %+v %v %v", naming, ok, err)
	}
}

func TestSeedFallsBackWhenNoSpeedMatches(t *testing.T) {
	d := newDraft(t)
	m, _ := dao.ParseMember("0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1", "10", "")
	schemes, err := reconcile.DerivePresetConfigs(reconcile.SpeedSlow)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	schemes[0].Params.ThresholdConst = 2000
	p, err := migration.Build(dao.Naming{OrgName: "Gamma", TokenName: "Gamma Token", TokenSymbol: "GAM"}, dao.Members{m}, schemes[:2], migration.DefaultOptions())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := d.Seed(p, reconcile.SpeedSlow); err != nil {
		t.Fatalf("seed: %v", err)
	}
	st, _, err := d.LoadSchemes()
	if err != nil || st.Speed != reconcile.SpeedSlow {
		t.Fatalf("expected fallback speed, got %+v %v", st, err)
	}
	if st.Schemes[0].IsBound() || !st.Schemes[1].IsBound() {
		t.Fatalf("only the edited scheme should be custom: %+v", st.Schemes)
	}
}

func TestLoadSchemesDropsStaleBindings(t *testing.T) {
	d := newDraft(t)
	st := reconcile.NewState()
	st.Schemes[0].Params.QuietEndingPeriod = 1
	if !st.Schemes[0].IsBound() {
		t.Fatalf("fixture should keep the stored binding")
	}
	if err := d.SaveSchemes(st); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, ok, err := d.LoadSchemes()
	if err != nil || !ok {
		t.Fatalf("load: %v %v", ok, err)
	}
	if loaded.Schemes[0].IsBound() {
		t.Fatalf("binding on edited parameters should be dropped")
	}
	if !loaded.Schemes[1].IsBound() {
		t.Fatalf("matching scheme should keep its binding")
	}
	if loaded.Schemes[0].Params.QuietEndingPeriod != 1 {
		t.Fatalf("parameters must be kept as stored")
	}
}

func TestLoadSchemesRejectsCorruptFile(t *testing.T) {
	d := newDraft(t)
	if err := os.MkdirAll(d.Dir(), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(d.Dir(), FileSchemes), []byte(`{"speed":"medium","schemes":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := d.LoadSchemes(); err == nil {
		t.Fatalf("expected error for empty scheme set")
	}
	if err := os.WriteFile(filepath.Join(d.Dir(), FileSchemes), []byte(`{`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := d.LoadSchemes(); err == nil {
		t.Fatalf("expected error for corrupt file")
	}
}

func TestSeedFromParams(t *testing.T) {
	d := newDraft(t)
	m, _ := dao.ParseMember("0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1", "10", "1")
	schemes, err := reconcile.DerivePresetConfigs(reconcile.SpeedFast)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	p, err := migration.Build(dao.Naming{OrgName: "Gamma", TokenName: "Gamma Token", TokenSymbol: "GAM"}, dao.Members{m}, schemes[:2], migration.DefaultOptions())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := d.SaveParams(p); err != nil {
		t.Fatalf("save params: %v", err)
	}
	if err := d.Seed(p, reconcile.SpeedMedium); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if got := d.CurrentPhase(); got != PhaseReview {
		t.Fatalf("seeded draft phase = %s", got)
	}
	naming, ok, _ := d.LoadNaming()
	if !ok || naming.OrgName != "Gamma" {
		t.Fatalf("naming not seeded: %+v", naming)
	}
	members, err := d.LoadMembers()
	if err != nil || len(members) != 1 {
		t.Fatalf("members not seeded: %v %v", members, err)
	}
	st, ok, err := d.LoadSchemes()
	if err != nil || !ok || st.Speed != reconcile.SpeedFast || st.HasCustom() {
		t.Fatalf("schemes not seeded at the speed they were built at: %+v %v", st, err)
	}
	if _, ok, _ := d.LoadParams(); ok {
		t.Fatalf("seeding starts a fresh draft without an exported document")
	}
}
