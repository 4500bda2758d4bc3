package moqt

import "testing"

func TestComputeSendOrderNegativeSeqIsMaxPriority(t *testing.T) {
	if got := computeSendOrder(-1, false); got != maxVarintValue {
		t.Errorf("computeSendOrder(-1, false) = %d, want %d", got, maxVarintValue)
	}
	if got := computeSendOrder(-1, true); got != maxVarintValue {
		t.Errorf("computeSendOrder(-1, true) = %d, want %d", got, maxVarintValue)
	}
}

func TestComputeSendOrderNewerSeqIDOutranksOlder(t *testing.T) {
	a := computeSendOrder(1, false)
	b := computeSendOrder(2, false)
	if !(b > a) {
		t.Errorf("sendOrder(seq=2)=%d should outrank sendOrder(seq=1)=%d", b, a)
	}
}

func TestComputeSendOrderHipriOutranksLopriAtEqualSeq(t *testing.T) {
	audio := computeSendOrder(5, true)
	video := computeSendOrder(5, false)
	if !(audio > video) {
		t.Errorf("hipri sendOrder=%d should outrank lopri sendOrder=%d at equal seqId", audio, video)
	}
}
