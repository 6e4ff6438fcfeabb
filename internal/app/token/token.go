// Package token implements a minimal fungible token contract that the
// multisig can drive: the multisig is the minter, and holds and moves its
// own balance like any other account.
//
// Invariant: total_supply == SUM(balances). Mint raises both, burn lowers both,
// transfer moves weight between two balances.
package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/tutu-network/multisig/internal/domain"
	"github.com/tutu-network/multisig/internal/infra/sqlite"
)

// ─── Messages ───────────────────────────────────────────────────────────────

// Amounts are decimal strings on the wire.

// MintMsg creates amount new tokens for recipient. Minter only.
type MintMsg struct {
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount,string"`
}

// TransferMsg moves amount from the sender to recipient.
type TransferMsg struct {
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount,string"`
}

// BurnMsg destroys amount of the sender's tokens.
type BurnMsg struct {
	Amount int64 `json:"amount,string"`
}

// ExecuteMsg is the action envelope. Exactly one field must be set.
type ExecuteMsg struct {
	Mint     *MintMsg     `json:"mint,omitempty"`
	Transfer *TransferMsg `json:"transfer,omitempty"`
	Burn     *BurnMsg     `json:"burn,omitempty"`
}

// Info is the token_info query response.
type Info struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    uint8  `json:"decimals"`
	Minter      string `json:"minter"`
	TotalSupply int64  `json:"total_supply,string"`
}

// Balance is the balance query response.
type Balance struct {
	Address string `json:"address"`
	Balance int64  `json:"balance,string"`
}

// receipt is returned as the action's response data.
type receipt struct {
	Action string `json:"action"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Amount int64  `json:"amount,string"`
}

// ─── Contract ───────────────────────────────────────────────────────────────

// Contract is a token deployed at one address.
type Contract struct {
	db   *sqlite.DB
	addr string
}

// New binds the contract at addr to db.
func New(db *sqlite.DB, addr string) *Contract {
	return &Contract{db: db, addr: addr}
}

// Address returns the contract address actions are routed by.
func (c *Contract) Address() string { return c.addr }

// Init records token metadata on first start. Later calls are no-ops.
func (c *Contract) Init(ctx context.Context, name, symbol string, decimals uint8, minter string) error {
	if strings.TrimSpace(symbol) == "" || strings.TrimSpace(minter) == "" {
		return fmt.Errorf("token %s: symbol and minter are required", c.addr)
	}
	return c.db.InitToken(ctx, sqlite.TokenInfo{
		Contract: c.addr,
		Name:     name,
		Symbol:   symbol,
		Decimals: decimals,
		Minter:   minter,
	})
}

// Execute implements domain.Contract.
func (c *Contract) Execute(ctx context.Context, env domain.ContractEnv, raw json.RawMessage) (json.RawMessage, error) {
	var msg ExecuteMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidAction, err)
	}

	var (
		r   receipt
		err error
	)
	switch {
	case msg.Mint != nil && msg.Transfer == nil && msg.Burn == nil:
		r, err = c.mint(ctx, env.Sender, *msg.Mint)
	case msg.Transfer != nil && msg.Mint == nil && msg.Burn == nil:
		r, err = c.transfer(ctx, env.Sender, *msg.Transfer)
	case msg.Burn != nil && msg.Mint == nil && msg.Transfer == nil:
		r, err = c.burn(ctx, env.Sender, *msg.Burn)
	default:
		return nil, fmt.Errorf("%w: token message must set exactly one of mint, transfer or burn", domain.ErrInvalidAction)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(r)
}

func (c *Contract) mint(ctx context.Context, sender string, m MintMsg) (receipt, error) {
	if err := checkTransfer(m.Recipient, m.Amount); err != nil {
		return receipt{}, err
	}
	info, err := c.info(ctx)
	if err != nil {
		return receipt{}, err
	}
	if sender != info.Minter {
		return receipt{}, fmt.Errorf("%w: %s is not the minter of %s", domain.ErrUnauthorized, sender, c.addr)
	}
	if info.TotalSupply > math.MaxInt64-m.Amount {
		return receipt{}, fmt.Errorf("mint %d: %w", m.Amount, domain.ErrOverflow)
	}

	bal, err := c.db.TokenBalance(ctx, c.addr, m.Recipient)
	if err != nil {
		return receipt{}, err
	}
	if err := c.db.SetTokenBalance(ctx, c.addr, m.Recipient, bal+m.Amount); err != nil {
		return receipt{}, fmt.Errorf("credit %s: %w", m.Recipient, err)
	}
	if err := c.db.SetTotalSupply(ctx, c.addr, info.TotalSupply+m.Amount); err != nil {
		return receipt{}, fmt.Errorf("raise supply: %w", err)
	}
	return receipt{Action: "mint", To: m.Recipient, Amount: m.Amount}, nil
}

func (c *Contract) transfer(ctx context.Context, sender string, m TransferMsg) (receipt, error) {
	if err := checkTransfer(m.Recipient, m.Amount); err != nil {
		return receipt{}, err
	}
	if _, err := c.info(ctx); err != nil {
		return receipt{}, err
	}

	from, err := c.db.TokenBalance(ctx, c.addr, sender)
	if err != nil {
		return receipt{}, err
	}
	if from < m.Amount {
		return receipt{}, fmt.Errorf("%w: %s has %d, needs %d", domain.ErrInsufficientFunds, sender, from, m.Amount)
	}
	if err := c.db.SetTokenBalance(ctx, c.addr, sender, from-m.Amount); err != nil {
		return receipt{}, fmt.Errorf("debit %s: %w", sender, err)
	}

	// Read after the debit so a self-transfer nets to zero.
	to, err := c.db.TokenBalance(ctx, c.addr, m.Recipient)
	if err != nil {
		return receipt{}, err
	}
	if err := c.db.SetTokenBalance(ctx, c.addr, m.Recipient, to+m.Amount); err != nil {
		return receipt{}, fmt.Errorf("credit %s: %w", m.Recipient, err)
	}
	return receipt{Action: "transfer", From: sender, To: m.Recipient, Amount: m.Amount}, nil
}

func (c *Contract) burn(ctx context.Context, sender string, m BurnMsg) (receipt, error) {
	if m.Amount <= 0 {
		return receipt{}, fmt.Errorf("%w: amount must be positive, got %d", domain.ErrInvalidAction, m.Amount)
	}
	info, err := c.info(ctx)
	if err != nil {
		return receipt{}, err
	}

	bal, err := c.db.TokenBalance(ctx, c.addr, sender)
	if err != nil {
		return receipt{}, err
	}
	if bal < m.Amount {
		return receipt{}, fmt.Errorf("%w: %s has %d, needs %d", domain.ErrInsufficientFunds, sender, bal, m.Amount)
	}
	if err := c.db.SetTokenBalance(ctx, c.addr, sender, bal-m.Amount); err != nil {
		return receipt{}, fmt.Errorf("debit %s: %w", sender, err)
	}
	if err := c.db.SetTotalSupply(ctx, c.addr, info.TotalSupply-m.Amount); err != nil {
		return receipt{}, fmt.Errorf("lower supply: %w", err)
	}
	return receipt{Action: "burn", From: sender, Amount: m.Amount}, nil
}

// ─── Queries ────────────────────────────────────────────────────────────────

// Info returns the token metadata and supply.
func (c *Contract) Info(ctx context.Context) (*Info, error) {
	info, err := c.info(ctx)
	if err != nil {
		return nil, err
	}
	return &Info{
		Name:        info.Name,
		Symbol:      info.Symbol,
		Decimals:    info.Decimals,
		Minter:      info.Minter,
		TotalSupply: info.TotalSupply,
	}, nil
}

// Balance returns an account's balance; unknown accounts hold zero.
func (c *Contract) Balance(ctx context.Context, account string) (*Balance, error) {
	bal, err := c.db.TokenBalance(ctx, c.addr, account)
	if err != nil {
		return nil, fmt.Errorf("balance of %s: %w", account, err)
	}
	return &Balance{Address: account, Balance: bal}, nil
}

func (c *Contract) info(ctx context.Context) (*sqlite.TokenInfo, error) {
	info, err := c.db.GetTokenInfo(ctx, c.addr)
	if errors.Is(err, sqlite.ErrNoRecord) {
		return nil, fmt.Errorf("%w: token %s is not initialized", domain.ErrUnknownContract, c.addr)
	}
	return info, err
}

func checkTransfer(recipient string, amount int64) error {
	if strings.TrimSpace(recipient) == "" {
		return fmt.Errorf("%w: recipient is required", domain.ErrInvalidAction)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive, got %d", domain.ErrInvalidAction, amount)
	}
	return nil
}
