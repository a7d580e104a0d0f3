package client

import (
	"fmt"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/shopspring/decimal"

	"github.com/carbobit/apex-sdk/models"
)

// GetAccountInfo reads the raw System.Account storage entry for a public key.
func (c *Client) GetAccountInfo(publicKey []byte) (*types.AccountInfo, error) {
	if err := c.checkRuntimeVersion(); err != nil {
		return nil, err
	}
	key, err := types.CreateStorageKey(c.Meta, "System", "Account", publicKey, nil)
	if err != nil {
		return nil, fmt.Errorf("can't create storage key %v", err)
	}
	var accountInfo types.AccountInfo
	ok, err := c.API.RPC.State.GetStorageLatest(key, &accountInfo)
	if err != nil || !ok {
		return nil, fmt.Errorf("can't get latest storage for account %v  ok:%v", err, ok)
	}
	return &accountInfo, nil
}

// GetAccountBalance returns the account's free and reserved balances in plancks
// along with its nonce.
func (c *Client) GetAccountBalance(publicKey []byte) (*models.AccountBalance, error) {
	accountInfo, err := c.GetAccountInfo(publicKey)
	if err != nil {
		return nil, err
	}
	return &models.AccountBalance{
		Free:     decimal.NewFromBigInt(accountInfo.Data.Free.Int, 0),
		Reserved: decimal.NewFromBigInt(accountInfo.Data.Reserved.Int, 0),
		Nonce:    uint32(accountInfo.Nonce),
	}, nil
}
