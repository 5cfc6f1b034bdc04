package core

import (
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"

	"synnergy-network/internal/testutil"
)

func TestLoadGenesisAppliesDefaultsAndDerivesChainID(t *testing.T) {
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox: %v", err)
	}
	defer sb.Cleanup()

	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	key := PublicKeyFromPrivate(priv)
	keyHex := hex.EncodeToString(key.Data[:])

	data := []byte(fmt.Sprintf("initial_timestamp: \"2024-01-01T00:00:00Z\"\ninitial_key: %q\n", keyHex))
	if err := sb.WriteFile("genesis.yaml", data, 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	g, err := LoadGenesis(sb.Path("genesis.yaml"))
	if err != nil {
		t.Fatalf("LoadGenesis: %v", err)
	}
	if g.InitialConfiguration.MaxInlineActionDepth != DefaultChainConfig().MaxInlineActionDepth {
		t.Fatalf("expected default chain config to be applied, got %+v", g.InitialConfiguration)
	}

	id1 := g.ChainID()
	id2 := g.ChainID()
	if id1 != id2 {
		t.Fatalf("ChainID is not deterministic")
	}

	g2 := g
	g2.InitialTimestamp = "2025-01-01T00:00:00Z"
	if g2.ChainID() == id1 {
		t.Fatalf("ChainID ignored initial_timestamp")
	}
}

func TestLoadGenesisRejectsMissingKey(t *testing.T) {
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox: %v", err)
	}
	defer sb.Cleanup()

	data := []byte("initial_timestamp: \"2024-01-01T00:00:00Z\"\n")
	if err := sb.WriteFile("genesis.yaml", data, 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadGenesis(sb.Path("genesis.yaml")); err == nil {
		t.Fatalf("expected LoadGenesis to reject a genesis file with no initial_key")
	}
}
