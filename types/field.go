package types

import (
	"io"
	"math/big"

	"filippo.io/bigmod"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/wippyai/crypto-bridge/errors"
)

// Fr is an element of the BN254 scalar field, 32 bytes big-endian.
type Fr [FieldSize]byte

// Fq is an element of the BN254 base field (the grumpkin scalar field), 32 bytes big-endian.
type Fq [FieldSize]byte

const (
	frModulusDec = "21888242871839275222246405745257275088548364400416034343698204186575808495617"
	fqModulusDec = "21888242871839275222246405745257275088696311157297823662689037894645226208583"
)

// Modulus is a prime field modulus
type Modulus struct {
	value *bigmod.Modulus
	n     *big.Int
}

func mustModulus(dec string) *Modulus {
	n, ok := new(big.Int).SetString(dec, 10)
	if !ok {
		panic("invalid modulus value: " + dec)
	}
	m, err := bigmod.NewModulus(n.Bytes())
	if err != nil {
		panic("invalid modulus value: " + dec + ", error: " + err.Error())
	}
	return &Modulus{value: m, n: n}
}

var (
	frModulus = mustModulus(frModulusDec)
	fqModulus = mustModulus(fqModulusDec)
)

// FrModulus returns the modulus r of Fr
func FrModulus() *Modulus { return frModulus }

// FqModulus returns the modulus q of Fq
func FqModulus() *Modulus { return fqModulus }

// BigInt returns a copy of the modulus
func (m *Modulus) BigInt() *big.Int { return new(big.Int).Set(m.n) }

// Reduce interprets b as a big-endian integer of any length and returns it mod m
// as a 32-byte big-endian value.
func (m *Modulus) Reduce(b []byte) [FieldSize]byte {
	var out [FieldSize]byte
	if len(b) == 0 {
		return out
	}

	// A power of two above b lets SetBytes accept it without reduction.
	largeModBytes := make([]byte, len(b)+1)
	largeModBytes[0] = 1
	largeMod, err := bigmod.NewModulus(largeModBytes)
	if err != nil {
		panic("bigmod: " + err.Error())
	}
	t, err := bigmod.NewNat().SetBytes(b, largeMod)
	if err != nil {
		panic("bigmod: " + err.Error())
	}

	r := bigmod.NewNat().Mod(t, m.value)
	copy(out[FieldSize-m.value.Size():], r.Bytes(m.value))
	return out
}

// Random samples a uniformly distributed element from rand.
func (m *Modulus) Random(rand io.Reader) ([FieldSize]byte, error) {
	// 128 bits more than the modulus keeps the bias negligible.
	buf := make([]byte, m.value.Size()+16)
	if _, err := io.ReadFull(rand, buf); err != nil {
		return [FieldSize]byte{}, err
	}
	return m.Reduce(buf), nil
}

// contains reports whether b, as a big-endian integer, is below m
func (m *Modulus) contains(b []byte) bool {
	_, err := bigmod.NewNat().SetBytes(b, m.value)
	return err == nil
}

func fieldFromBytes(b []byte, d Descriptor) ([FieldSize]byte, error) {
	var out [FieldSize]byte
	if len(b) != FieldSize {
		return out, errors.InvalidLength(errors.PhaseConstruct, d.String(), FieldSize, len(b))
	}
	copy(out[:], b)
	return out, nil
}

func fieldFromBigInt(n *big.Int, m *Modulus) [FieldSize]byte {
	if n.Sign() < 0 {
		n = new(big.Int).Mod(n, m.n)
	}
	return m.Reduce(n.Bytes())
}

func parseField(s string, d Descriptor) ([FieldSize]byte, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return [FieldSize]byte{}, errors.ParseFailed(d.String(), err)
	}
	return fieldFromBytes(b, d)
}

// FrFromBytes copies exactly 32 bytes into an Fr
func FrFromBytes(b []byte) (Fr, error) {
	v, err := fieldFromBytes(b, FrType)
	return Fr(v), err
}

// FrFromBigInt returns n mod r
func FrFromBigInt(n *big.Int) Fr { return Fr(fieldFromBigInt(n, frModulus)) }

// FrFromUint64 returns v as an Fr
func FrFromUint64(v uint64) Fr { return FrFromBigInt(new(big.Int).SetUint64(v)) }

// ReduceFr reduces arbitrary big-endian bytes mod r
func ReduceFr(b []byte) Fr { return Fr(frModulus.Reduce(b)) }

// RandomFr samples a uniform Fr
func RandomFr(rand io.Reader) (Fr, error) {
	v, err := frModulus.Random(rand)
	return Fr(v), err
}

// ParseFr parses a 0x-prefixed 32-byte hex string
func ParseFr(s string) (Fr, error) {
	v, err := parseField(s, FrType)
	return Fr(v), err
}

func (f Fr) Descriptor() Descriptor { return FrType }
func (f Fr) Bytes() []byte           { return append([]byte(nil), f[:]...) }
func (f Fr) BigInt() *big.Int        { return new(big.Int).SetBytes(f[:]) }
func (f Fr) String() string          { return hexutil.Encode(f[:]) }

// IsCanonical reports whether f is below the modulus
func (f Fr) IsCanonical() bool { return frModulus.contains(f[:]) }

// FqFromBytes copies exactly 32 bytes into an Fq
func FqFromBytes(b []byte) (Fq, error) {
	v, err := fieldFromBytes(b, FqType)
	return Fq(v), err
}

// FqFromBigInt returns n mod q
func FqFromBigInt(n *big.Int) Fq { return Fq(fieldFromBigInt(n, fqModulus)) }

// FqFromUint64 returns v as an Fq
func FqFromUint64(v uint64) Fq { return FqFromBigInt(new(big.Int).SetUint64(v)) }

// ReduceFq reduces arbitrary big-endian bytes mod q
func ReduceFq(b []byte) Fq { return Fq(fqModulus.Reduce(b)) }

// RandomFq samples a uniform Fq
func RandomFq(rand io.Reader) (Fq, error) {
	v, err := fqModulus.Random(rand)
	return Fq(v), err
}

// ParseFq parses a 0x-prefixed 32-byte hex string
func ParseFq(s string) (Fq, error) {
	v, err := parseField(s, FqType)
	return Fq(v), err
}

func (f Fq) Descriptor() Descriptor { return FqType }
func (f Fq) Bytes() []byte           { return append([]byte(nil), f[:]...) }
func (f Fq) BigInt() *big.Int        { return new(big.Int).SetBytes(f[:]) }
func (f Fq) String() string          { return hexutil.Encode(f[:]) }

// IsCanonical reports whether f is below the modulus
func (f Fq) IsCanonical() bool { return fqModulus.contains(f[:]) }
