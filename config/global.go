package config

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/tonlight/tonlight/crypto"
	"github.com/tonlight/tonlight/crypto/ed25519"
	tlbytes "github.com/tonlight/tonlight/libs/bytes"
	"github.com/tonlight/tonlight/types"
)

// GlobalConfig is the subset of the public TON global config the verifier
// reads: the liteserver list and the hardcoded init block.
type GlobalConfig struct {
	Liteservers []LiteserverConfig `json:"liteservers"`
	Validator   struct {
		InitBlock *InitBlock `json:"init_block"`
	} `json:"validator"`
}

// LiteserverConfig describes one liteserver entry.
type LiteserverConfig struct {
	// IP is the IPv4 address packed into a signed 32-bit integer.
	IP   int64 `json:"ip"`
	Port int   `json:"port"`
	ID   struct {
		Type string               `json:"@type"`
		Key  tlbytes.Base64Bytes `json:"key"`
	} `json:"id"`
}

// InitBlock is the block a fresh node trusts without verification.
type InitBlock struct {
	Workchain int32               `json:"workchain"`
	Shard     int64               `json:"shard"`
	SeqNo     uint32              `json:"seqno"`
	RootHash  tlbytes.Base64Bytes `json:"root_hash"`
	FileHash  tlbytes.Base64Bytes `json:"file_hash"`
}

// LoadGlobalConfig reads and validates a TON global config file.
func LoadGlobalConfig(path string) (*GlobalConfig, error) {
	bz, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading global config: %w", err)
	}
	var gc GlobalConfig
	if err := json.Unmarshal(bz, &gc); err != nil {
		return nil, fmt.Errorf("parsing global config %s: %w", path, err)
	}
	if len(gc.Liteservers) == 0 {
		return nil, errors.New("global config lists no liteservers")
	}
	for i, ls := range gc.Liteservers {
		if err := ls.ValidateBasic(); err != nil {
			return nil, fmt.Errorf("liteserver #%d: %w", i, err)
		}
	}
	return &gc, nil
}

// ValidateBasic checks the address and key of the entry.
func (ls LiteserverConfig) ValidateBasic() error {
	if ls.IP < -1<<31 || ls.IP > 1<<32-1 {
		return fmt.Errorf("ip %d does not fit in 32 bits", ls.IP)
	}
	if ls.Port <= 0 || ls.Port > 65535 {
		return fmt.Errorf("invalid port %d", ls.Port)
	}
	if len(ls.ID.Key) != ed25519.PubKeySize {
		return fmt.Errorf("expected %d byte key, got %d", ed25519.PubKeySize, len(ls.ID.Key))
	}
	return nil
}

// IPv4 unpacks the integer address.
func (ls LiteserverConfig) IPv4() net.IP {
	ip := make(net.IP, net.IPv4len)
	binary.BigEndian.PutUint32(ip, uint32(ls.IP))
	return ip
}

// Address renders the liteserver address as tcp://a.b.c.d:port.
func (ls LiteserverConfig) Address() string {
	return fmt.Sprintf("tcp://%s", net.JoinHostPort(ls.IPv4().String(), fmt.Sprint(ls.Port)))
}

// NodeID returns the short id of the liteserver key.
func (ls LiteserverConfig) NodeID() crypto.NodeID {
	return ed25519.PubKey(ls.ID.Key).NodeID()
}

// BlockID converts the init block into a block id.
func (ib *InitBlock) BlockID() (types.BlockID, error) {
	if ib == nil {
		return types.BlockID{}, errors.New("global config has no init block")
	}
	id := types.BlockID{
		Workchain: ib.Workchain,
		Shard:     ib.Shard,
		SeqNo:     ib.SeqNo,
		RootHash:  tlbytes.HexBytes(ib.RootHash),
		FileHash:  tlbytes.HexBytes(ib.FileHash),
	}
	return id, id.ValidateBasic()
}
