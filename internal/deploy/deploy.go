// Package deploy hands a migration document to the external Arc migration
// tooling and relays its progress back to the wizard.
package deploy

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/kingrea/arc-wizard/internal/migration"
)

var (
	// ErrNoCommand is returned when no migration command is configured.
	ErrNoCommand = errors.New("deploy: no migration command configured")
	// ErrAborted is returned when the migrator gives up before completing.
	ErrAborted = errors.New("deploy: migration aborted")
	// ErrNoResult is returned when the migrator exits cleanly without
	// reporting the deployed addresses.
	ErrNoResult = errors.New("deploy: migrator finished without a result")
)

// Result describes the deployed organization.
type Result struct {
	ArcVersion string         `json:"arcVersion"`
	Name       string         `json:"name"`
	Avatar     common.Address `json:"Avatar"`
	DAOToken   common.Address `json:"DAOToken"`
	Reputation common.Address `json:"Reputation"`
	Controller common.Address `json:"Controller"`
}

// Tx is a confirmed migration transaction.
type Tx struct {
	Message string
	Hash    common.Hash
	// Cost in ether.
	Cost decimal.Decimal
}

// Callbacks receive migration progress. Every field is optional.
type Callbacks struct {
	// UserApproval asks before a step that spends funds. A nil func declines.
	UserApproval func(msg string) bool
	Info         func(msg string)
	Error        func(msg string)
	TxComplete   func(tx Tx)
	Aborted      func(err error)
	Complete     func(res Result)
}

func (c Callbacks) approve(msg string) bool {
	if c.UserApproval == nil {
		return false
	}
	return c.UserApproval(msg)
}

func (c Callbacks) info(msg string) {
	if c.Info != nil {
		c.Info(msg)
	}
}

func (c Callbacks) error(msg string) {
	if c.Error != nil {
		c.Error(msg)
	}
}

func (c Callbacks) txComplete(tx Tx) {
	if c.TxComplete != nil {
		c.TxComplete(tx)
	}
}

func (c Callbacks) aborted(err error) {
	if c.Aborted != nil {
		c.Aborted(err)
	}
}

func (c Callbacks) complete(res Result) {
	if c.Complete != nil {
		c.Complete(res)
	}
}

// Migrator deploys an organization described by a migration document.
type Migrator interface {
	Migrate(ctx context.Context, params migration.Params, cb Callbacks) (Result, error)
}
