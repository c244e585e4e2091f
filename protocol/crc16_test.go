package protocol

import "testing"

func TestCRC16Empty(t *testing.T) {
	if got := CRC16(nil); got != 0xFFFF {
		t.Errorf("CRC16(empty) = 0x%04X, want 0xFFFF", got)
	}
}

func TestCRC16Consistency(t *testing.T) {
	data := []byte{5, MessageDest}
	first := CRC16(data)
	for i := 0; i < 5; i++ {
		if got := CRC16(data); got != first {
			t.Errorf("CRC16 not deterministic: 0x%04X vs 0x%04X", got, first)
		}
	}
}

func TestCRC16DetectsChanges(t *testing.T) {
	base := []byte{0x08, 0x11, 0x03, 0x05, 0x10}
	crc := CRC16(base)
	for i := range base {
		mutated := append([]byte(nil), base...)
		mutated[i] ^= 0x01
		if CRC16(mutated) == crc {
			t.Errorf("Flipping bit in byte %d did not change the CRC", i)
		}
	}
}
