package gpcc

import (
	"math/rand/v2"
	"testing"

	"go.viam.com/test"
)

func TestMQDecoderInit(t *testing.T) {
	mq := newMQDecoder([]byte{0x00, 0x00, 0x00, 0x00})
	test.That(t, mq.interval, test.ShouldEqual, uint32(0x8000))
	test.That(t, mq.bypass.index, test.ShouldEqual, uint8(mqUniformState))

	// a fresh context starts at state 0 with mps 0
	var ctx mqContext
	test.That(t, ctx.index, test.ShouldEqual, uint8(0))
	test.That(t, ctx.mps, test.ShouldEqual, uint8(0))
}

func TestMQProbabilityTable(t *testing.T) {
	for _, e := range mqProbTable {
		test.That(t, int(e.nmps), test.ShouldBeLessThan, len(mqProbTable))
		test.That(t, int(e.nlps), test.ShouldBeLessThan, len(mqProbTable))
		test.That(t, int(e.qe), test.ShouldBeGreaterThan, 0)
		if e.switchMPS {
			test.That(t, e.qe, test.ShouldEqual, uint16(0x5601))
		}
	}
	uniform := mqProbTable[mqUniformState]
	test.That(t, uniform.nmps, test.ShouldEqual, uint8(mqUniformState))
	test.That(t, uniform.nlps, test.ShouldEqual, uint8(mqUniformState))
	test.That(t, uniform.switchMPS, test.ShouldBeFalse)
}

func TestMQRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		count int
		bias  float64
	}{
		{"empty", 0, 0.5},
		{"single", 1, 0.5},
		{"balanced", 2000, 0.5},
		{"skewed zeros", 5000, 0.02},
		{"skewed ones", 5000, 0.97},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewPCG(1, uint64(tt.count)))
			bits := make([]int, tt.count)
			for i := range bits {
				if rng.Float64() < tt.bias {
					bits[i] = 1
				}
			}

			var encCtx [4]mqContext
			enc := newMQEncoder()
			for i, bit := range bits {
				if i%5 == 4 {
					enc.EncodeBypass(bit)
				} else {
					enc.Encode(&encCtx[i%4], bit)
				}
			}
			payload := enc.Flush()

			var decCtx [4]mqContext
			dec := newMQDecoder(payload)
			for i, want := range bits {
				var got int
				if i%5 == 4 {
					got = dec.DecodeBypass()
				} else {
					got = dec.Decode(&decCtx[i%4])
				}
				if got != want {
					t.Fatalf("bin %d: got %d, want %d", i, got, want)
				}
			}
			test.That(t, decCtx, test.ShouldResemble, encCtx)
		})
	}
}

func TestMQExpGolombRoundTrip(t *testing.T) {
	values := []uint32{0, 1, 2, 3, 4, 7, 8, 100, 1023, 1024, 65535, 1 << 20}
	for _, k := range []int{0, 1, 2} {
		for _, suffixModeled := range []bool{false, true} {
			var prefix, suffix [3]mqContext
			var suffixCtx []mqContext
			if suffixModeled {
				suffixCtx = suffix[:]
			}

			enc := newMQEncoder()
			for _, v := range values {
				enc.EncodeExpGolomb(v, k, prefix[:], suffixCtx)
			}
			payload := enc.Flush()

			var dprefix, dsuffix [3]mqContext
			var dsuffixCtx []mqContext
			if suffixModeled {
				dsuffixCtx = dsuffix[:]
			}
			dec := newMQDecoder(payload)
			for _, v := range values {
				test.That(t, dec.DecodeExpGolomb(k, dprefix[:], dsuffixCtx), test.ShouldEqual, v)
			}
		}
	}
}

func TestMQBypassBits(t *testing.T) {
	enc := newMQEncoder()
	enc.EncodeBypassBits(0x2d, 6)
	enc.EncodeBypassBits(0, 0)
	enc.EncodeBypassBits(0x1fffff, 21)
	dec := newMQDecoder(enc.Flush())
	test.That(t, dec.DecodeBypassBits(6), test.ShouldEqual, uint32(0x2d))
	test.That(t, dec.DecodeBypassBits(0), test.ShouldEqual, uint32(0))
	test.That(t, dec.DecodeBypassBits(21), test.ShouldEqual, uint32(0x1fffff))
}

func TestMQDecoderEndOfData(t *testing.T) {
	// reading far past the payload keeps producing bins
	for _, data := range [][]byte{nil, {0xff}, {0xff, 0xff, 0xff}} {
		dec := newMQDecoder(data)
		var ctx mqContext
		for range 1000 {
			bit := dec.Decode(&ctx)
			test.That(t, bit == 0 || bit == 1, test.ShouldBeTrue)
		}
		// the prefix is bounded even on an all-ones stream
		_ = dec.DecodeExpGolomb(0, []mqContext{{index: mqUniformState}}, nil)
	}
}

func BenchmarkMQDecoderDecode(b *testing.B) {
	enc := newMQEncoder()
	var ctx mqContext
	for i := range 1 << 16 {
		enc.Encode(&ctx, i>>3&1)
	}
	payload := enc.Flush()

	for b.Loop() {
		dec := newMQDecoder(payload)
		var dctx mqContext
		for range 1 << 16 {
			dec.Decode(&dctx)
		}
	}
}
