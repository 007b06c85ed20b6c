package gpcc

import (
	"slices"
	"testing"

	"go.viam.com/test"
)

func TestAngularResidual(t *testing.T) {
	values := []int{0, 1, -1, 2, -2, 3, -3, 17, -40, 0, 5}

	enc := newMQEncoder()
	we := &octreeWalker{ctx: NewGeometryContexts(), coder: geometryBinEncoder{mq: enc}}
	for _, v := range values {
		test.That(t, we.codeAngularResidual(v, &we.ctx.ctxThetaRes), test.ShouldEqual, v)
	}

	wd := &octreeWalker{ctx: NewGeometryContexts(), coder: geometryBinDecoder{mq: newMQDecoder(enc.Flush())}}
	for _, v := range values {
		test.That(t, wd.codeAngularResidual(0, &wd.ctx.ctxThetaRes), test.ShouldEqual, v)
	}
	test.That(t, wd.ctx.ctxThetaRes, test.ShouldResemble, we.ctx.ctxThetaRes)
}

func TestSharedHighBits(t *testing.T) {
	newPair := func(a, b [3]uint32) []directPoint {
		size := [3]int{4, 4, 4}
		return []directPoint{{rel: a, left: size}, {rel: b, left: size}}
	}

	enc := newMQEncoder()
	we := &octreeWalker{ctx: NewGeometryContexts(), coder: geometryBinEncoder{mq: enc}}

	// x 0101 and 0110 share two bits; the third is implied
	pts := newPair([3]uint32{5, 9, 1}, [3]uint32{6, 2, 3})
	test.That(t, we.codeSharedHighBits(pts, 3), test.ShouldBeTrue)
	test.That(t, pts[0].left, test.ShouldResemble, [3]int{1, 4, 4})
	test.That(t, pts[0].val[0], test.ShouldEqual, uint32(4))
	test.That(t, pts[1].val[0], test.ShouldEqual, uint32(6))

	// equal x and y leave z to the caller
	same := newPair([3]uint32{7, 3, 0}, [3]uint32{7, 3, 9})
	test.That(t, we.codeSharedHighBits(same, 2), test.ShouldBeFalse)
	test.That(t, same[1].val, test.ShouldResemble, [3]uint32{7, 3, 0})
	test.That(t, same[1].left, test.ShouldResemble, [3]int{0, 0, 4})

	wd := &octreeWalker{ctx: NewGeometryContexts(), coder: geometryBinDecoder{mq: newMQDecoder(enc.Flush())}}
	got := newPair([3]uint32{}, [3]uint32{})
	test.That(t, wd.codeSharedHighBits(got, 3), test.ShouldBeTrue)
	test.That(t, got[0].val, test.ShouldResemble, pts[0].val)
	test.That(t, got[1].val, test.ShouldResemble, pts[1].val)
	got = newPair([3]uint32{}, [3]uint32{})
	test.That(t, wd.codeSharedHighBits(got, 2), test.ShouldBeFalse)
	test.That(t, got[0].val, test.ShouldResemble, [3]uint32{7, 3, 0})
}

func TestComparePosition(t *testing.T) {
	pts := [][3]int32{{1, 2, 3}, {1, 0, 9}, {0, 5, 5}, {1, 2, 1}}
	slices.SortFunc(pts, comparePosition)
	test.That(t, pts, test.ShouldResemble, [][3]int32{{0, 5, 5}, {1, 0, 9}, {1, 2, 1}, {1, 2, 3}})
}

func TestDirectAngularContextsAdapt(t *testing.T) {
	gps := &GeometryParams{
		InferredDirectCodingMode: 2, AngularEnabled: true,
		Angular: AngularParams{
			Origin:        [3]int32{512, 512, 32},
			ThetaLaser:    []int{-20000, -8000, 0, 8000, 20000},
			ZLaser:        []int{0, 0, 0, 0, 0},
			NumPhiPerTurn: []int{512, 512, 1024, 1024, 1024},
		},
	}
	root := [3]int{10, 10, 6}
	geometryRoundTrip(t, gps, root, pairCloud(21, 60, root))

	encCtx := NewGeometryContexts()
	gbh := &GeometryBrickHeader{RootNodeSizeLog2: root, NumPoints: 120}
	_, _, err := EncodeGeometry(gps, gbh, pairCloud(21, 60, root), encCtx, nil)
	test.That(t, err, test.ShouldBeNil)

	fresh := NewGeometryContexts()
	test.That(t, encCtx.ctxDirectMode, test.ShouldNotResemble, fresh.ctxDirectMode)
	test.That(t, encCtx.ctxThetaRes.isZero, test.ShouldNotResemble, fresh.ctxThetaRes.isZero)
	test.That(t, encCtx.ctxPlanarPlaneLastIndexAngularIdcm, test.ShouldNotResemble, fresh.ctxPlanarPlaneLastIndexAngularIdcm)
}
