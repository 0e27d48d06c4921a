package interval

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
)

func sortedInts(vals []interface{}) []int {
	r := make([]int, len(vals))
	for i, v := range vals {
		r[i] = v.(int)
	}
	sort.Ints(r)
	return r
}

func TestQueryContainingBasic(t *testing.T) {
	var x ContainmentIndex
	expect.EQ(t, len(x.QueryContaining(1, 10)), 0)

	x.Put(100, 200, 0)
	x.Put(350, 250, 1) // reversed endpoints are normalized
	x.Put(150, 260, 2)
	assert.NoError(t, x.Validate())

	tests := []struct {
		start, stop PosType
		want        []int
	}{
		{100, 200, []int{0}},
		{120, 180, []int{0}},
		{160, 190, []int{0, 2}},
		{250, 260, []int{1, 2}},
		{255, 350, []int{1}},
		{190, 270, []int{}},
		{50, 60, []int{}},
		{400, 500, []int{}},
		{300, 260, []int{1}},
	}
	for _, test := range tests {
		got := sortedInts(x.QueryContaining(test.start, test.stop))
		expect.EQ(t, got, test.want, "query [%d,%d]", test.start, test.stop)
	}
}

func TestLazySortAfterInsert(t *testing.T) {
	var x ContainmentIndex
	x.Put(500, 600, "b")
	expect.EQ(t, x.QueryContaining(510, 520), []interface{}{"b"})
	x.Put(10, 20, "a")
	expect.EQ(t, x.QueryContaining(12, 15), []interface{}{"a"})
	expect.EQ(t, x.QueryContaining(510, 520), []interface{}{"b"})
	expect.EQ(t, x.Len(), 2)
}

func TestValidateRejectsNesting(t *testing.T) {
	var x ContainmentIndex
	x.Put(10, 100, "outer")
	x.Put(20, 30, "inner")
	err := x.Validate()
	assert.Error(t, err)
	nested, ok := err.(*NestedError)
	assert.True(t, ok)
	expect.EQ(t, nested.Outer, "outer")
	expect.EQ(t, nested.Inner, "inner")

	var y ContainmentIndex
	y.Put(10, 30, "short")
	y.Put(10, 40, "long")
	err = y.Validate()
	assert.Error(t, err)
	expect.EQ(t, err.(*NestedError).Outer, "long")

	var z ContainmentIndex
	z.Put(10, 30, "a")
	z.Put(10, 30, "b")
	z.Put(20, 40, "c")
	assert.NoError(t, z.Validate())
	expect.EQ(t, len(z.QueryContaining(20, 30)), 3)
}

// randomNonNested returns n intervals whose starts and ends are both strictly
// increasing, so no interval nests inside another.
func randomNonNested(r *rand.Rand, n int) [][2]PosType {
	ivs := make([][2]PosType, n)
	start, end := PosType(0), PosType(0)
	for i := range ivs {
		start += PosType(1 + r.Intn(50))
		if end < start {
			end = start
		}
		end += PosType(1 + r.Intn(80))
		ivs[i] = [2]PosType{start, end}
	}
	return ivs
}

func TestQueryContainingMatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewSource(0))
	for iter := 0; iter < 200; iter++ {
		ivs := randomNonNested(r, 1+r.Intn(40))
		var x ContainmentIndex
		for _, i := range r.Perm(len(ivs)) {
			x.Put(ivs[i][0], ivs[i][1], i)
		}
		assert.NoError(t, x.Validate())
		maxPos := int(ivs[len(ivs)-1][1]) + 20
		for q := 0; q < 50; q++ {
			a := PosType(r.Intn(maxPos))
			b := a + PosType(r.Intn(60))
			want := []int{}
			for i, iv := range ivs {
				if iv[0] <= a && b <= iv[1] {
					want = append(want, i)
				}
			}
			got := sortedInts(x.QueryContaining(a, b))
			if !assert.Equal(t, want, got, "query [%d,%d] over %v", a, b, ivs) {
				return
			}
		}
	}
}
