package structurer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetInsertContainsRemove(t *testing.T) {
	var s set

	assert.False(t, s.contains(5))
	s.insert(5)
	assert.True(t, s.contains(5))

	s.remove(5)
	assert.False(t, s.contains(5))
}

func TestSetContainsIsFalseForNegativeOrUngrown(t *testing.T) {
	var s set
	assert.False(t, s.contains(-1))
	assert.False(t, s.contains(200))
}

func TestSetGrowInsertReportsPriorMembership(t *testing.T) {
	var s set

	assert.False(t, s.growInsert(3))
	assert.True(t, s.growInsert(3))
}

func TestSetSpansMultipleWords(t *testing.T) {
	var s set
	s.insert(0)
	s.insert(63)
	s.insert(64)
	s.insert(200)

	for _, id := range []int{0, 63, 64, 200} {
		assert.True(t, s.contains(id), "expected %d to be a member", id)
	}
	assert.False(t, s.contains(65))
}

func TestSetClearRemovesEveryMember(t *testing.T) {
	var s set
	s.insert(10)
	s.insert(100)
	s.clear()

	assert.False(t, s.contains(10))
	assert.False(t, s.contains(100))
}

func TestSetAscendingVisitsInIncreasingOrder(t *testing.T) {
	var s set
	for _, id := range []int{200, 3, 64, 1, 0} {
		s.insert(id)
	}

	var got []int
	s.ascending(func(id int) { got = append(got, id) })

	assert.Equal(t, []int{0, 1, 3, 64, 200}, got)
}
