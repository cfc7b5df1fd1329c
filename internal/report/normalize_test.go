package report

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// pngFixture returns a small valid PNG payload.
func pngFixture() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	Expect(png.Encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("Normalize", func() {
	var (
		payload  []byte
		mimeType string
		data     []byte
		ext      string
	)

	JustBeforeEach(func() {
		data, ext = Normalize(payload, mimeType)
	})

	When("a PNG payload is declared as image/png", func() {
		BeforeEach(func() {
			payload = pngFixture()
			mimeType = "image/png"
		})

		It("should re-encode to JPEG with extension jpg", func() {
			Expect(ext).To(Equal("jpg"))
			img, err := jpeg.Decode(bytes.NewReader(data))
			Expect(err).NotTo(HaveOccurred())
			Expect(img.Bounds().Dx()).To(Equal(8))
		})
	})

	When("the declared MIME type has surrounding whitespace and mixed case", func() {
		BeforeEach(func() {
			payload = pngFixture()
			mimeType = "  Image/PNG "
		})

		It("should still re-encode", func() {
			Expect(ext).To(Equal("jpg"))
		})
	})

	When("a payload declared as an image does not decode", func() {
		BeforeEach(func() {
			payload = []byte("not an image at all")
			mimeType = "image/jpeg"
		})

		It("should pass the payload through unchanged", func() {
			Expect(data).To(Equal(payload))
		})

		It("should resolve the extension from the declared type", func() {
			Expect(ext).To(Equal("jpg"))
		})
	})

	When("a payload declared as HEIC does not decode", func() {
		BeforeEach(func() {
			payload = []byte("junk")
			mimeType = "image/heic"
		})

		It("should fall through to the heic extension", func() {
			Expect(data).To(Equal(payload))
			Expect(ext).To(Equal("heic"))
		})
	})

	When("the payload is a PDF", func() {
		BeforeEach(func() {
			payload = []byte("%PDF-1.4 fake pdf")
			mimeType = "application/pdf"
		})

		It("should pass through with extension pdf", func() {
			Expect(data).To(Equal(payload))
			Expect(ext).To(Equal("pdf"))
		})
	})

	When("the MIME type is unrecognized", func() {
		BeforeEach(func() {
			payload = []byte{0x01, 0x02}
			mimeType = "application/octet-stream"
		})

		It("should default to jpg and pass through", func() {
			Expect(data).To(Equal(payload))
			Expect(ext).To(Equal("jpg"))
		})
	})
})
