package scanning

import (
	"bytes"
	"errors"
	"image"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("decodeImage", func() {
	It("decodes PNG data", func() {
		img, err := decodeImage(testPNG(8, 4))
		Expect(err).NotTo(HaveOccurred())
		Expect(img.Bounds().Dx()).To(Equal(8))
		Expect(img.Bounds().Dy()).To(Equal(4))
	})

	It("reports unknown formats", func() {
		_, err := decodeImage([]byte("plain text, not an image"))
		Expect(err).To(MatchError(ContainSubstring("unsupported image format")))
		Expect(errors.Is(err, image.ErrFormat)).To(BeTrue())
	})

	It("wraps other decoding failures without calling them unsupported", func() {
		_, err := decodeImage(testPNG(8, 4)[:40])
		Expect(err).To(MatchError(ContainSubstring("decoding image")))
		Expect(errors.Is(err, image.ErrFormat)).To(BeFalse())
	})
})

var _ = Describe("isHEICFormat", func() {
	DescribeTable("sniffing the ftyp brand",
		func(data []byte, expected bool) {
			Expect(isHEICFormat(data)).To(Equal(expected))
		},
		Entry("heic brand", []byte("\x00\x00\x00\x18ftypheic\x00\x00"), true),
		Entry("mif1 brand", []byte("\x00\x00\x00\x18ftypmif1\x00\x00"), true),
		Entry("mp4 brand", []byte("\x00\x00\x00\x18ftypisom\x00\x00"), false),
		Entry("too short", []byte("ftyp"), false),
		Entry("png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), false),
	)
})

var _ = Describe("encodePNG", func() {
	It("round trips through the PNG decoder", func() {
		data, err := encodePNG(testImage(3, 7))
		Expect(err).NotTo(HaveOccurred())

		img, err := png.Decode(bytes.NewReader(data))
		Expect(err).NotTo(HaveOccurred())
		Expect(img.Bounds().Dy()).To(Equal(7))
	})
})
