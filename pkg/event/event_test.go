package event

import "testing"

func TestSignalOrderAndPayload(t *testing.T) {
	var s Signal[int]
	var got []int
	s.Connect(func(v int) { got = append(got, v) })
	s.Connect(func(v int) { got = append(got, v*10) })

	s.Emit(3)
	s.Emit(4)

	want := []int{3, 30, 4, 40}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestSignalMuted(t *testing.T) {
	var s Signal[string]
	count := 0
	s.Connect(func(string) { count++ })

	s.SetMuted(true)
	s.Emit("hidden")
	s.SetMuted(false)
	s.Emit("seen")

	if count != 1 {
		t.Errorf("handler ran %d times, want 1", count)
	}
}

func TestSignalNoHandlers(t *testing.T) {
	var s Signal[int]
	s.Emit(1) // must not panic
}
