package assetledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"swiftremit/internal/storage"
	"swiftremit/pkg/amount"
	"swiftremit/pkg/domain"
	dErrors "swiftremit/pkg/domain-errors"
)

type LedgerSuite struct {
	suite.Suite
	store  *storage.InMemory
	ledger *Ledger
	ctx    context.Context
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	s.store = storage.NewInMemory()
	s.ledger = New(s.store, "USDC")
	s.ctx = context.Background()
}

func (s *LedgerSuite) balance(account string) string {
	bal, err := s.ledger.Balance(s.ctx, domain.Principal("G"+account))
	s.Require().NoError(err)
	return bal.String()
}

func (s *LedgerSuite) TestMintAndTransfer() {
	_, err := s.ledger.Mint(s.ctx, "GALICE", amount.New(1000))
	s.Require().NoError(err)

	s.Require().NoError(s.ledger.Transfer(s.ctx, "GALICE", "GBOB", amount.New(400)))
	s.Equal("600", s.balance("ALICE"))
	s.Equal("400", s.balance("BOB"))
}

func (s *LedgerSuite) TestInsufficientBalanceLeavesBalances() {
	_, err := s.ledger.Mint(s.ctx, "GALICE", amount.New(100))
	s.Require().NoError(err)

	err = s.ledger.Transfer(s.ctx, "GALICE", "GBOB", amount.New(101))
	s.True(dErrors.HasCode(err, dErrors.CodeInsufficientBalance))
	s.Equal("100", s.balance("ALICE"))
	s.Equal("0", s.balance("BOB"))
}

func (s *LedgerSuite) TestRejectsNonPositiveAmounts() {
	s.True(dErrors.HasCode(s.ledger.Transfer(s.ctx, "GALICE", "GBOB", amount.Zero), dErrors.CodeInvalidAmount))
	_, err := s.ledger.Mint(s.ctx, "GALICE", amount.New(-1))
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidAmount))
}

func (s *LedgerSuite) TestSelfTransferIsNoop() {
	_, err := s.ledger.Mint(s.ctx, "GALICE", amount.New(5))
	s.Require().NoError(err)
	s.Require().NoError(s.ledger.Transfer(s.ctx, "GALICE", "GALICE", amount.New(5)))
	s.Equal("5", s.balance("ALICE"))
}

func (s *LedgerSuite) TestJoinsEnclosingUnitOfWork() {
	_, err := s.ledger.Mint(s.ctx, "GALICE", amount.New(50))
	s.Require().NoError(err)

	boom := errors.New("later step failed")
	err = s.store.RunInTx(s.ctx, func(ctx context.Context, kv storage.KV) error {
		if err := s.ledger.Transfer(ctx, "GALICE", "GBOB", amount.New(50)); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)
	s.Equal("50", s.balance("ALICE"), "transfer rolled back with the enclosing unit of work")
	s.Equal("0", s.balance("BOB"))
}

func (s *LedgerSuite) TestAssetsAreSeparate() {
	other := New(s.store, "EURC")
	_, err := other.Mint(s.ctx, "GALICE", amount.New(9))
	s.Require().NoError(err)
	s.Equal("0", s.balance("ALICE"))
}
