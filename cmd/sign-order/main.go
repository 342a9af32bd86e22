package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sorawit/openocean/pkg/crypto"
	"github.com/sorawit/openocean/pkg/market"
)

// Demonstrates the full signing flow: maker signs the order hash, the
// operator co-signs {makerHash, deadline}, the taker counter-signs the
// order hash, and the resulting trade submission is printed ready for
// POST /api/v1/trade.
func main() {
	fmt.Println("Generating maker, operator and taker keypairs...")
	maker, err := crypto.GenerateKey()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	operator, err := crypto.GenerateKey()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	taker, err := crypto.GenerateKey()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Maker:    %s\n", crypto.ChecksumAddress(maker.Address()))
	fmt.Printf("Operator: %s (grant OPERATOR_ROLE to this address)\n", crypto.ChecksumAddress(operator.Address()))
	fmt.Printf("Taker:    %s\n\n", crypto.ChecksumAddress(taker.Address()))

	salt, err := crypto.GenerateSalt()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	order := &market.Order{
		Maker:      maker.Address(),
		Asset:      common.HexToAddress("0x1100000000000000000000000000000000000011"),
		ItemID:     big.NewInt(42),
		IsBuy:      false,
		Cost:       new(big.Int).Mul(big.NewInt(100), big.NewInt(1e18)),
		Unit:       common.HexToAddress("0x2200000000000000000000000000000000000022"),
		Expiration: 2000000000,
		Salt:       salt,
	}

	codec := market.NewCodec(
		market.SchemeV2,
		big.NewInt(42),
		common.HexToAddress("0x893b16335a0cf38E0413Bde347357bfc27de9F4b"),
	)

	makerHash, err := codec.MakerHash(order)
	if err != nil {
		fmt.Printf("Error hashing order: %v\n", err)
		os.Exit(1)
	}
	makerSig, err := maker.SignPersonal(makerHash.Bytes())
	if err != nil {
		fmt.Printf("Error signing order: %v\n", err)
		os.Exit(1)
	}

	deadline := uint64(3000000000)
	operatorHash := codec.OperatorHash(makerHash, deadline)
	operatorSig, err := operator.SignPersonal(operatorHash.Bytes())
	if err != nil {
		fmt.Printf("Error co-signing: %v\n", err)
		os.Exit(1)
	}

	takerSig, err := taker.SignPersonal(makerHash.Bytes())
	if err != nil {
		fmt.Printf("Error counter-signing: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Maker hash:    %s\n", makerHash.Hex())
	fmt.Printf("Maker sig:     0x%x\n", makerSig)
	fmt.Printf("Operator hash: %s\n", operatorHash.Hex())
	fmt.Printf("Operator sig:  0x%x\n", operatorSig)
	fmt.Printf("Taker sig:     0x%x\n\n", takerSig)

	submission := map[string]any{
		"order":       order.ToArray(),
		"makerSig":    fmt.Sprintf("0x%x", makerSig),
		"deadline":    deadline,
		"operatorSig": fmt.Sprintf("0x%x", operatorSig),
		"takerSig":    fmt.Sprintf("0x%x", takerSig),
		"sender":      crypto.ChecksumAddress(taker.Address()),
	}
	out, err := json.MarshalIndent(submission, "", "  ")
	if err != nil {
		fmt.Printf("Error marshaling JSON: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Trade submission (POST /api/v1/trade):")
	fmt.Println(string(out))
}
