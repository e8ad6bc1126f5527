package event

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/l1jgo/worldcore/internal/world"
)

func TestBusDeliversNextTick(t *testing.T) {
	b := NewBus()
	var got []uint32
	Subscribe(b, func(e CreatureMoved) { got = append(got, e.CreatureID) })

	Emit(b, CreatureMoved{CreatureID: 1})
	Emit(b, CreatureMoved{CreatureID: 2})
	assert.Equal(t, 2, b.Pending())

	b.DispatchAll()
	assert.Empty(t, got, "events are not visible before the swap")

	b.SwapBuffers()
	assert.Zero(t, b.Pending())
	b.DispatchAll()
	assert.Equal(t, []uint32{1, 2}, got)

	b.SwapBuffers()
	b.DispatchAll()
	assert.Equal(t, []uint32{1, 2}, got, "a swapped-out buffer is not redelivered")
}

func TestBusDispatchOrder(t *testing.T) {
	b := NewBus()
	var log []string
	Subscribe(b, func(e CreatureAppeared) { log = append(log, "appeared") })
	Subscribe(b, func(e CreatureDisappeared) { log = append(log, "disappeared") })
	Subscribe(b, func(e CreatureMoved) { log = append(log, "moved") })
	Subscribe(b, func(e CreatureMoved) { log = append(log, "moved again") })

	for i := 0; i < 20; i++ {
		log = log[:0]
		Emit(b, CreatureDisappeared{CreatureID: 1})
		Emit(b, CreatureAppeared{CreatureID: 2, Pos: world.Pos(1, 1, 7)})
		Emit(b, CreatureMoved{CreatureID: 3})
		b.SwapBuffers()
		b.DispatchAll()
		assert.Equal(t, []string{"disappeared", "appeared", "moved", "moved again"}, log)
	}
}

func TestBusWithoutSubscribers(t *testing.T) {
	b := NewBus()
	Emit(b, CreatureAppeared{CreatureID: 9})
	b.SwapBuffers()
	assert.NotPanics(t, b.DispatchAll)
}
