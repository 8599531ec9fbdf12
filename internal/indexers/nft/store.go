package nft

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/russross/meddler"
)

// entityStore gives the event handlers keyed load/persist access to the
// derived entities. Handlers run it on the batch transaction, so each
// handler sees every write made earlier in the same batch; the query path
// runs it directly on the database.
type entityStore struct {
	tx meddler.DB
}

func newEntityStore(tx meddler.DB) *entityStore {
	return &entityStore{tx: tx}
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// loadToken loads a token by its composite key. Returns nil when absent.
func (s *entityStore) loadToken(key string) (*Token, error) {
	var token Token
	err := meddler.QueryRow(s.tx, &token, `SELECT * FROM tokens WHERE token_key = ?`, key)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load token %s: %w", key, err)
	}

	return &token, nil
}

// saveToken inserts or updates a token depending on whether it has been
// persisted before.
func (s *entityStore) saveToken(token *Token) error {
	if token.ID == 0 {
		if err := meddler.Insert(s.tx, "tokens", token); err != nil {
			return fmt.Errorf("failed to insert token %s: %w", token.Key, err)
		}
		return nil
	}

	if err := meddler.Update(s.tx, "tokens", token); err != nil {
		return fmt.Errorf("failed to update token %s: %w", token.Key, err)
	}

	return nil
}

// loadContract loads a contract by address. Returns nil when absent.
func (s *entityStore) loadContract(addr common.Address) (*Contract, error) {
	var contract Contract
	err := meddler.QueryRow(s.tx, &contract, `SELECT * FROM contracts WHERE address = ?`, addr.Hex())
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load contract %s: %w", addr.Hex(), err)
	}

	return &contract, nil
}

func (s *entityStore) saveContract(contract *Contract) error {
	if contract.ID == 0 {
		if err := meddler.Insert(s.tx, "contracts", contract); err != nil {
			return fmt.Errorf("failed to insert contract %s: %w", contract.Address.Hex(), err)
		}
		return nil
	}

	if err := meddler.Update(s.tx, "contracts", contract); err != nil {
		return fmt.Errorf("failed to update contract %s: %w", contract.Address.Hex(), err)
	}

	return nil
}

// loadMinter loads a minter aggregate by its composite key. Returns nil when absent.
func (s *entityStore) loadMinter(key string) (*Minter, error) {
	var minter Minter
	err := meddler.QueryRow(s.tx, &minter, `SELECT * FROM minters WHERE minter_key = ?`, key)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load minter %s: %w", key, err)
	}

	return &minter, nil
}

func (s *entityStore) saveMinter(minter *Minter) error {
	if minter.ID == 0 {
		if err := meddler.Insert(s.tx, "minters", minter); err != nil {
			return fmt.Errorf("failed to insert minter %s: %w", minter.Key, err)
		}
		return nil
	}

	if err := meddler.Update(s.tx, "minters", minter); err != nil {
		return fmt.Errorf("failed to update minter %s: %w", minter.Key, err)
	}

	return nil
}

// insertTransaction persists a transaction record for a processed event.
func (s *entityStore) insertTransaction(txn *Transaction) error {
	if err := meddler.Insert(s.tx, "transactions", txn); err != nil {
		return fmt.Errorf("failed to insert transaction %s: %w", txn.Key, err)
	}

	return nil
}
