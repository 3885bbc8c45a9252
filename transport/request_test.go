package transport

import (
	"errors"
	"testing"
)

// Verify that Test returns false for an uncompleted Request
func TestRequest_NotCompleted(t *testing.T) {
	r := NewRequest(nil)
	ok, _, err := r.Test()

	if ok {
		t.Error("Expected Test to return false for uncompleted Request")
	}
	if err != nil {
		t.Error("Expected Test to return nil error for uncompleted Request")
	}
	if r.State() != Pending {
		t.Errorf("Expected pending state, got %v", r.State())
	}
}

// Verify that Test returns the message and error the request was completed
// with, and keeps returning them.
func TestRequest_Completed(t *testing.T) {
	r := NewRequest(nil)
	testErr := errors.New("Test Error!")
	r.Complete(Message{Kind: KindSupply, First: 3, Last: 9}, testErr)

	for i := 0; i < 2; i++ {
		ok, msg, err := r.Test()
		if !ok {
			t.Fatal("Expected Test to return true for completed Request")
		}
		if err != testErr {
			t.Errorf("Expected %v, got %v", testErr, err)
		}
		if msg.Count() != 6 {
			t.Errorf("Expected 6 items, got %v", msg)
		}
	}
	if r.State() != Completed {
		t.Errorf("Expected completed state, got %v", r.State())
	}
}

func TestRequest_CompletingTwicePanics(t *testing.T) {
	r := NewRequest(nil)
	r.Complete(Message{}, nil)

	defer func() {
		if recover() == nil {
			t.Error("Expected calling Complete twice to panic")
		}
	}()
	r.Complete(Message{}, nil)
}

func TestRequest_Cancel(t *testing.T) {
	canceled := false
	r := NewRequest(func() { canceled = true })
	r.Cancel()

	if !canceled {
		t.Error("Expected cancel func to run")
	}
	if r.State() != Idle {
		t.Errorf("Expected idle state, got %v", r.State())
	}
	if ok, _, _ := r.Test(); ok {
		t.Error("Expected canceled request to never complete")
	}

	done := CompletedRequest(Message{}, nil)
	done.Test()
	done.Cancel()
	if done.State() != Completed {
		t.Error("Expected cancel of a completed request to do nothing")
	}
}

// Verify that canceling a request whose result already arrived keeps the
// result instead of dropping it.
func TestRequest_CancelAfterComplete(t *testing.T) {
	canceled := false
	r := NewRequest(func() { canceled = true })
	r.Complete(Message{Kind: KindSupply, First: 1, Last: 3}, nil)
	r.Cancel()

	if !canceled {
		t.Error("Expected cancel func to run")
	}
	if r.State() != Completed {
		t.Errorf("Expected completed state, got %v", r.State())
	}
	ok, msg, err := r.Test()
	if !ok || err != nil || msg.Count() != 2 {
		t.Errorf("Expected the delivered message, got %v %v %v", ok, msg, err)
	}
}

func TestWait(t *testing.T) {
	r := NewRequest(nil)
	go r.Complete(Message{Kind: KindSupply, First: 0, Last: 1}, nil)

	msg, err := Wait(r)
	if err != nil || msg.Count() != 1 {
		t.Fatalf("Unexpected result %v %v", msg, err)
	}
}
