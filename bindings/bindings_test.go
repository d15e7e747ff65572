package bindings

import (
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
	"testing"

	"golang.org/x/crypto/blake2s"

	"github.com/wippyai/crypto-bridge/dispatch"
	"github.com/wippyai/crypto-bridge/errors"
	"github.com/wippyai/crypto-bridge/internal/simmod"
	"github.com/wippyai/crypto-bridge/types"
)

func newAPI(t *testing.T) (*API, *simmod.Module) {
	t.Helper()
	mod := simmod.New(nil)
	return New(dispatch.New(mod)), mod
}

func checkNoLeaks(t *testing.T, mod *simmod.Module) {
	t.Helper()
	if live := mod.Heap().Live(); live != 0 {
		t.Errorf("%d module allocations still live", live)
	}
}

func TestExports_Table(t *testing.T) {
	if len(Exports) != 25 {
		t.Errorf("len(Exports) = %d, want 25", len(Exports))
	}
	seen := make(map[string]bool)
	for _, e := range Exports {
		if seen[e.Name] {
			t.Errorf("duplicate export %s", e.Name)
		}
		seen[e.Name] = true
		if len(e.Params) != len(e.In) {
			t.Errorf("%s: %d param names for %d inputs", e.Name, len(e.Params), len(e.In))
		}
	}
	if _, ok := Lookup("pedersen_hash_to_tree"); !ok {
		t.Error("Lookup(pedersen_hash_to_tree) failed")
	}
	if _, ok := Lookup("sha256"); ok {
		t.Error("Lookup(sha256) succeeded")
	}
}

func TestExport_Signature(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"pedersen_init", "pedersen_init: func()"},
		{"pedersen_compress_fields", "pedersen_compress_fields: func(left: fr, right: fr) -> fr"},
		{"pedersen_hash_to_tree", "pedersen_hash_to_tree: func(data: list<fr>) -> list<fr>"},
		{"pedersen_compress_with_hash_index", "pedersen_compress_with_hash_index: func(inputs: list<fr>, hash_index: u32) -> fr"},
		{"schnorr_construct_signature", "schnorr_construct_signature: func(message: buffer, private_key: fr) -> tuple<buffer32, buffer32>"},
		{"schnorr_verify_signature", "schnorr_verify_signature: func(message: buffer, public_key: point, sig_s: buffer32, sig_e: buffer32) -> bool"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := Lookup(tt.name)
			if !ok {
				t.Fatalf("%s not found", tt.name)
			}
			if got := e.Signature(); got != tt.want {
				t.Errorf("Signature() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAPI_Pedersen(t *testing.T) {
	ctx := context.Background()
	api, mod := newAPI(t)

	if err := api.PedersenInit(ctx); err != nil {
		t.Fatal(err)
	}
	if err := api.PedersenHashInit(ctx); err != nil {
		t.Fatal(err)
	}

	a, b := types.FrFromUint64(1), types.FrFromUint64(2)
	x, err := api.PedersenCompressFields(ctx, a, b)
	if err != nil {
		t.Fatal(err)
	}
	y, err := api.PedersenCompressFields(ctx, a, b)
	if err != nil {
		t.Fatal(err)
	}
	if x != y {
		t.Errorf("compress not deterministic: %v != %v", x, y)
	}
	if !x.IsCanonical() {
		t.Errorf("result %v not reduced", x)
	}

	inputs := []types.Fr{a, b, types.FrFromUint64(3)}
	plain, err := api.PedersenCompress(ctx, inputs)
	if err != nil {
		t.Fatal(err)
	}
	indexed, err := api.PedersenCompressWithHashIndex(ctx, inputs, 7)
	if err != nil {
		t.Fatal(err)
	}
	zero, err := api.PedersenCompressWithHashIndex(ctx, inputs, 0)
	if err != nil {
		t.Fatal(err)
	}
	if zero != plain || indexed == plain {
		t.Error("hash index not applied")
	}

	if _, err := api.PedersenCommit(ctx, nil); err != nil {
		t.Errorf("commit of empty vector: %v", err)
	}
	if _, err := api.PedersenBufferToField(ctx, types.Buffer("some bytes")); err != nil {
		t.Error(err)
	}
	checkNoLeaks(t, mod)
}

func TestAPI_HashToTree(t *testing.T) {
	ctx := context.Background()
	api, mod := newAPI(t)

	leaves := []types.Fr{types.FrFromUint64(1), types.FrFromUint64(2), types.FrFromUint64(3), types.FrFromUint64(4)}
	nodes, err := api.PedersenHashToTree(ctx, leaves)
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 2*len(leaves)-1 {
		t.Fatalf("len(nodes) = %d, want %d", len(nodes), 2*len(leaves)-1)
	}
	for i, leaf := range leaves {
		if nodes[i] != leaf {
			t.Errorf("nodes[%d] = %v, want leaf %v", i, nodes[i], leaf)
		}
	}

	left, err := api.PedersenHashPair(ctx, nodes[0], nodes[1])
	if err != nil {
		t.Fatal(err)
	}
	if nodes[4] != left {
		t.Errorf("first parent = %v, want hash_pair(leaf0, leaf1) = %v", nodes[4], left)
	}
	root, err := api.PedersenHashPair(ctx, nodes[4], nodes[5])
	if err != nil {
		t.Fatal(err)
	}
	if nodes[6] != root {
		t.Errorf("root = %v, want %v", nodes[6], root)
	}
	checkNoLeaks(t, mod)
}

func TestAPI_Blake2s(t *testing.T) {
	ctx := context.Background()
	api, mod := newAPI(t)

	for _, msg := range []string{"", "abc", strings.Repeat("z", 1000)} {
		got, err := api.Blake2s(ctx, types.Buffer(msg))
		if err != nil {
			t.Fatal(err)
		}
		want := blake2s.Sum256([]byte(msg))
		if got != types.Buffer32(want) {
			t.Errorf("blake2s(%q) = %v, want %x", msg, got, want)
		}

		f, err := api.Blake2sToField(ctx, types.Buffer(msg))
		if err != nil {
			t.Fatal(err)
		}
		if f != types.ReduceFr(want[:]) {
			t.Errorf("blake2s_to_field(%q) = %v", msg, f)
		}
	}
	checkNoLeaks(t, mod)
}

func TestAPI_Schnorr(t *testing.T) {
	ctx := context.Background()
	api, mod := newAPI(t)

	priv := types.FrFromUint64(0xC0FFEE)
	pub, err := api.SchnorrComputePublicKey(ctx, priv)
	if err != nil {
		t.Fatal(err)
	}
	if pub.IsZero() {
		t.Fatal("zero public key")
	}

	msg := types.Buffer("the quick brown fox")
	s, e, err := api.SchnorrConstructSignature(ctx, msg, priv)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		msg  types.Buffer
		s, e types.Buffer32
		want bool
	}{
		{"valid", msg, s, e, true},
		{"other message", types.Buffer("the quick brown fix"), s, e, false},
		{"swapped halves", msg, e, s, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := api.SchnorrVerifySignature(ctx, tt.msg, pub, tt.s, tt.e)
			if err != nil {
				t.Fatal(err)
			}
			if ok != tt.want {
				t.Errorf("verify = %v, want %v", ok, tt.want)
			}
		})
	}

	neg, err := api.SchnorrNegatePublicKey(ctx, pub)
	if err != nil {
		t.Fatal(err)
	}
	if neg == pub || neg.X != pub.X {
		t.Errorf("negate(%v) = %v", pub, neg)
	}
	back, err := api.SchnorrNegatePublicKey(ctx, neg)
	if err != nil {
		t.Fatal(err)
	}
	if back != pub {
		t.Error("double negation changed the key")
	}
	if ok, _ := api.SchnorrVerifySignature(ctx, msg, neg, s, e); ok {
		t.Error("signature verified under the negated key")
	}

	if _, err := api.SchnorrComputePublicKey(ctx, types.Fr{}); !errors.IsKind(err, errors.KindDispatchFailure) {
		t.Errorf("zero key: err = %v, want dispatch_failure", err)
	}
	checkNoLeaks(t, mod)
}

func TestAPI_Multisig(t *testing.T) {
	ctx := context.Background()
	api, mod := newAPI(t)

	k1, err := api.SchnorrMultisigCreateMultisigPublicKey(ctx, types.FqFromUint64(7))
	if err != nil {
		t.Fatal(err)
	}
	k2, err := api.SchnorrMultisigCreateMultisigPublicKey(ctx, types.FqFromUint64(11))
	if err != nil {
		t.Fatal(err)
	}

	combined, ok, err := api.SchnorrMultisigValidateAndCombineSignerPubkeys(ctx, []types.Buffer128{k1, k2})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("valid keys rejected")
	}
	want, err := api.SchnorrComputePublicKey(ctx, types.FrFromUint64(18))
	if err != nil {
		t.Fatal(err)
	}
	if combined != want {
		t.Errorf("combined = %v, want key of 7+11 = %v", combined, want)
	}

	forged := k2
	forged[types.PointSize] ^= 1
	tests := []struct {
		name string
		keys []types.Buffer128
	}{
		{"duplicate", []types.Buffer128{k1, k1}},
		{"bad proof", []types.Buffer128{k1, forged}},
		{"empty", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok, err := api.SchnorrMultisigValidateAndCombineSignerPubkeys(ctx, tt.keys)
			if err != nil {
				t.Fatal(err)
			}
			if ok || !p.IsZero() {
				t.Errorf("got (%v, %v), want rejection", p, ok)
			}
		})
	}

	// The signing rounds are not provided by the simulated module.
	if _, _, err := api.SchnorrMultisigConstructSignatureRound1(ctx); !errors.IsKind(err, errors.KindDispatchFailure) {
		t.Errorf("round 1: err = %v, want dispatch_failure", err)
	}
	_, _, _, err = api.SchnorrMultisigCombineSignatures(ctx, types.Buffer("m"), []types.Buffer128{k1}, []types.Buffer128{k1}, []types.Fr{{}})
	if !errors.IsKind(err, errors.KindDispatchFailure) {
		t.Errorf("combine: err = %v, want dispatch_failure", err)
	}
	checkNoLeaks(t, mod)
}

func TestAPI_Call(t *testing.T) {
	ctx := context.Background()
	api, mod := newAPI(t)

	out, err := api.Call(ctx, "pedersen_hash_multiple_with_hash_index", []types.Fr{types.FrFromUint64(9)}, uint32(2))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := out[0].(types.Fr); !ok {
		t.Errorf("result type %T", out[0])
	}

	_, err = api.Call(ctx, "pedersen_hash_pair", types.Fr{}, "not a field")
	if !errors.IsKind(err, errors.KindTypeMismatch) {
		t.Errorf("err = %v, want type_mismatch", err)
	}
	if !errors.IsCallerFault(err) {
		t.Error("type mismatch not a caller fault")
	}

	_, err = api.Call(ctx, "keccak256", types.Buffer("x"))
	if !errors.IsKind(err, errors.KindDispatchFailure) {
		t.Errorf("unlisted export: err = %v", err)
	}
	if mod.Calls(simmod.PedersenHashPair) != 0 {
		t.Error("module called with mismatched arguments")
	}
	checkNoLeaks(t, mod)
}

func TestAPI_MethodsDocumented(t *testing.T) {
	file, err := parser.ParseFile(token.NewFileSet(), "api.go", nil, parser.ParseComments)
	if err != nil {
		t.Fatal(err)
	}

	methods := 0
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv == nil || !fn.Name.IsExported() {
			continue
		}
		methods++
		if fn.Doc == nil || !strings.HasPrefix(fn.Doc.Text(), fn.Name.Name+" ") {
			t.Errorf("%s has no doc comment", fn.Name.Name)
		}
	}
	// Call plus one method per export
	if want := len(Exports) + 1; methods != want {
		t.Errorf("%d exported methods, want %d", methods, want)
	}
}
