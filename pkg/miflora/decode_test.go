package miflora_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/plantsense/miflora-go/pkg/miflora"
	"github.com/plantsense/miflora-go/pkg/protocol"
)

var _ = Describe("DecodeSensorData", func() {
	payload := []byte{0x64, 0x00, 0x00, 0x4B, 0x00, 0x00, 0x00, 0x2A, 0x37, 0x01}

	It("decodes a packed real-time payload", func() {
		data, err := miflora.DecodeSensorData(payload)
		Expect(err).ToNot(HaveOccurred())
		Expect(data.Temperature.Celsius()).To(Equal(10.0))
		Expect(data.Light).To(Equal(uint32(75)))
		Expect(data.Moisture).To(Equal(uint8(42)))
		Expect(data.Conductivity).To(Equal(uint16(311)))
	})

	It("decodes negative temperatures", func() {
		frozen := append([]byte(nil), payload...)
		frozen[0] = 0xCE // -50 => -5.0 °C
		frozen[1] = 0xFF
		data, err := miflora.DecodeSensorData(frozen)
		Expect(err).ToNot(HaveOccurred())
		Expect(data.Temperature.Celsius()).To(Equal(-5.0))
	})

	It("is pure", func() {
		first, err := miflora.DecodeSensorData(payload)
		Expect(err).ToNot(HaveOccurred())
		second, err := miflora.DecodeSensorData(payload)
		Expect(err).ToNot(HaveOccurred())
		Expect(second).To(Equal(first))
	})

	It("ignores trailing bytes beyond the known layout", func() {
		extended := append(append([]byte(nil), payload...), 0xDE, 0xAD)
		data, err := miflora.DecodeSensorData(extended)
		Expect(err).ToNot(HaveOccurred())
		Expect(data.Conductivity).To(Equal(uint16(311)))
	})

	DescribeTable("rejects short payloads, naming the missing field",
		func(length int, field string) {
			_, err := miflora.DecodeSensorData(payload[:length])
			var derr *protocol.DecodeError
			Expect(errors.As(err, &derr)).To(BeTrue())
			Expect(derr.Field).To(Equal(field))
			Expect(derr.Got).To(Equal(length))
		},
		Entry("empty", 0, "temperature"),
		Entry("one byte", 1, "temperature"),
		Entry("truncated light", 5, "light"),
		Entry("missing moisture", 7, "moisture"),
		Entry("truncated conductivity", 9, "conductivity"),
	)
})

var _ = Describe("DecodeFirmware", func() {
	It("decodes battery level and version text", func() {
		fw, err := miflora.DecodeFirmware([]byte{0x5A, 0x00, 0x33, 0x2E, 0x32, 0x2E, 0x32})
		Expect(err).ToNot(HaveOccurred())
		Expect(fw.Battery).To(Equal(uint8(90)))
		Expect(fw.Version).To(Equal("3.2.2"))
	})

	It("trims trailing padding from the version", func() {
		fw, err := miflora.DecodeFirmware([]byte{0x64, 0x00, '2', '.', '7', '.', '0', 0x00, 0x00})
		Expect(err).ToNot(HaveOccurred())
		Expect(fw.Version).To(Equal("2.7.0"))
	})

	DescribeTable("rejects short payloads",
		func(payload []byte, field string) {
			_, err := miflora.DecodeFirmware(payload)
			var derr *protocol.DecodeError
			Expect(errors.As(err, &derr)).To(BeTrue())
			Expect(derr.Field).To(Equal(field))
		},
		Entry("empty", []byte{}, "battery"),
		Entry("battery only", []byte{0x5A}, "version"),
		Entry("no version text", []byte{0x5A, 0x00}, "version"),
	)
})
