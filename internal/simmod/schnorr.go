package simmod

import (
	"context"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"golang.org/x/crypto/blake2s"

	"github.com/wippyai/crypto-bridge/types"
)

// Keys are secp256k1 points encoded as X || Y. Signatures are BIP-340: the
// first 32 bytes travel as s, the last 32 as e.

func privateKey(m *Module, b []byte) (*btcec.PrivateKey, error) {
	priv, _ := btcec.PrivKeyFromBytes(b)
	if priv.Key.IsZero() {
		return nil, m.Trap("private key is zero")
	}
	return priv, nil
}

func encodePoint(pub *btcec.PublicKey) []byte {
	return pub.SerializeUncompressed()[1:]
}

func decodePoint(b []byte) (*btcec.PublicKey, error) {
	return btcec.ParsePubKey(append([]byte{0x04}, b...))
}

// computePublicKey: (priv *Fr, out *Point)
func computePublicKey(_ context.Context, m *Module, params []uint64) ([]uint64, error) {
	if err := m.arity(params, 2); err != nil {
		return nil, err
	}
	raw, err := m.ReadFixed(addr(params[0]), types.FieldSize)
	if err != nil {
		return nil, err
	}
	priv, err := privateKey(m, raw)
	if err != nil {
		return nil, err
	}
	return nil, m.WriteFixed(addr(params[1]), encodePoint(priv.PubKey()))
}

// negatePublicKey: (pub *Point, out *Point)
func negatePublicKey(_ context.Context, m *Module, params []uint64) ([]uint64, error) {
	if err := m.arity(params, 2); err != nil {
		return nil, err
	}
	raw, err := m.ReadFixed(addr(params[0]), types.PointSize)
	if err != nil {
		return nil, err
	}
	pub, err := decodePoint(raw)
	if err != nil {
		return nil, m.Trap("invalid public key: %v", err)
	}

	y := new(big.Int).Sub(btcec.S256().Params().P, pub.Y())
	out := make([]byte, types.PointSize)
	copy(out, raw[:types.FieldSize])
	y.FillBytes(out[types.FieldSize:])
	return nil, m.WriteFixed(addr(params[1]), out)
}

// constructSignature: (message *buffer, priv *Fr, s *Buffer32, e *Buffer32)
func constructSignature(_ context.Context, m *Module, params []uint64) ([]uint64, error) {
	if err := m.arity(params, 4); err != nil {
		return nil, err
	}
	msg, err := m.ReadBuffer(addr(params[0]))
	if err != nil {
		return nil, err
	}
	raw, err := m.ReadFixed(addr(params[1]), types.FieldSize)
	if err != nil {
		return nil, err
	}
	priv, err := privateKey(m, raw)
	if err != nil {
		return nil, err
	}

	hash := blake2s.Sum256(msg)
	sig, err := schnorr.Sign(priv, hash[:])
	if err != nil {
		return nil, m.Trap("sign: %v", err)
	}
	sb := sig.Serialize()
	if err := m.WriteFixed(addr(params[2]), sb[:32]); err != nil {
		return nil, err
	}
	return nil, m.WriteFixed(addr(params[3]), sb[32:])
}

// verifySignature: (message *buffer, pub *Point, s *Buffer32, e *Buffer32, out *bool)
func verifySignature(_ context.Context, m *Module, params []uint64) ([]uint64, error) {
	if err := m.arity(params, 5); err != nil {
		return nil, err
	}
	msg, err := m.ReadBuffer(addr(params[0]))
	if err != nil {
		return nil, err
	}
	rawPub, err := m.ReadFixed(addr(params[1]), types.PointSize)
	if err != nil {
		return nil, err
	}
	s, err := m.ReadFixed(addr(params[2]), 32)
	if err != nil {
		return nil, err
	}
	e, err := m.ReadFixed(addr(params[3]), 32)
	if err != nil {
		return nil, err
	}

	ok := false
	if pub, err := decodePoint(rawPub); err == nil {
		if sig, err := schnorr.ParseSignature(append(s, e...)); err == nil {
			hash := blake2s.Sum256(msg)
			ok = sig.Verify(hash[:], pub)
		}
	}
	return nil, m.WriteBool(addr(params[4]), ok)
}

// createMultisigPublicKey: (priv *Fq, out *Buffer128)
// The key is the public point followed by a signature over it proving
// possession of the private key.
func createMultisigPublicKey(_ context.Context, m *Module, params []uint64) ([]uint64, error) {
	if err := m.arity(params, 2); err != nil {
		return nil, err
	}
	raw, err := m.ReadFixed(addr(params[0]), types.FieldSize)
	if err != nil {
		return nil, err
	}
	priv, err := privateKey(m, raw)
	if err != nil {
		return nil, err
	}

	point := encodePoint(priv.PubKey())
	hash := blake2s.Sum256(point)
	pop, err := schnorr.Sign(priv, hash[:])
	if err != nil {
		return nil, m.Trap("sign proof of possession: %v", err)
	}
	return nil, m.WriteFixed(addr(params[1]), append(point, pop.Serialize()...))
}

// validateAndCombine: (keys *vector<Buffer128>, out *Point, ok *bool)
// Every key's proof of possession is checked and duplicates are rejected.
// On failure the point is left zero and ok is false.
func validateAndCombine(_ context.Context, m *Module, params []uint64) ([]uint64, error) {
	if err := m.arity(params, 3); err != nil {
		return nil, err
	}
	keys, err := m.ReadVector(addr(params[0]), types.Buffer128Size)
	if err != nil {
		return nil, err
	}

	sum, ok := combineKeys(keys)
	out := make([]byte, types.PointSize)
	if ok {
		out = encodePoint(sum)
	}
	if err := m.WriteFixed(addr(params[1]), out); err != nil {
		return nil, err
	}
	return nil, m.WriteBool(addr(params[2]), ok)
}

func combineKeys(keys [][]byte) (*btcec.PublicKey, bool) {
	if len(keys) == 0 {
		return nil, false
	}

	seen := make(map[string]bool, len(keys))
	var acc btcec.JacobianPoint
	for _, key := range keys {
		point, proof := key[:types.PointSize], key[types.PointSize:]
		if seen[string(point)] {
			return nil, false
		}
		seen[string(point)] = true

		pub, err := decodePoint(point)
		if err != nil {
			return nil, false
		}
		sig, err := schnorr.ParseSignature(proof)
		if err != nil {
			return nil, false
		}
		hash := blake2s.Sum256(point)
		if !sig.Verify(hash[:], pub) {
			return nil, false
		}

		var p, next btcec.JacobianPoint
		pub.AsJacobian(&p)
		btcec.AddNonConst(&acc, &p, &next)
		acc = next
	}

	if acc.Z.IsZero() || (acc.X.IsZero() && acc.Y.IsZero()) {
		return nil, false
	}
	acc.ToAffine()
	return btcec.NewPublicKey(&acc.X, &acc.Y), true
}
