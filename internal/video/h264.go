// Package video holds NALU-level utilities (Annex-B splitting, NALU
// classification, exact SPS dimension parsing via a small Exp-Golomb bit
// reader) plus the §9 FrameSink implementations for decoded video: a
// player adapter onto the façade's delay buffer, a raw/PNG recorder, and
// the tee that composes them.
package video

import "bytes"

// NALUType returns the low 5 bits of a NALU's header byte.
func NALUType(nalu []byte) byte {
	if len(nalu) == 0 {
		return 0
	}
	return nalu[0] & 0x1F
}

// SplitAnnexBNALUs splits an Annex-B bitstream (3- or 4-byte start codes)
// into individual NALUs, start codes stripped.
func SplitAnnexBNALUs(data []byte) [][]byte {
	var nalus [][]byte
	i := 0
	for {
		scStart, scEnd := findStartCode(data, i)
		if scStart < 0 {
			break
		}
		nextStart, _ := findStartCode(data, scEnd)
		if nextStart < 0 {
			if n := data[scEnd:]; len(n) > 0 {
				nalus = append(nalus, n)
			}
			break
		}
		if n := data[scEnd:nextStart]; len(n) > 0 {
			nalus = append(nalus, n)
		}
		i = nextStart
	}
	return nalus
}

func findStartCode(b []byte, from int) (int, int) {
	for i := from; i+3 <= len(b); i++ {
		if b[i] == 0 && b[i+1] == 0 && b[i+2] == 1 {
			return i, i + 3
		}
		if i+4 <= len(b) && b[i] == 0 && b[i+1] == 0 && b[i+2] == 0 && b[i+3] == 1 {
			return i, i + 4
		}
	}
	return -1, -1
}

// bitReader reads individual bits MSB-first, the layout SPS/PPS use.
type bitReader struct {
	b []byte
	i int
}

func (br *bitReader) u(n int) (uint, bool) {
	if n <= 0 {
		return 0, true
	}
	var v uint
	for k := 0; k < n; k++ {
		byteIndex := br.i / 8
		if byteIndex >= len(br.b) {
			return 0, false
		}
		bitIndex := 7 - (br.i % 8)
		bit := (br.b[byteIndex] >> uint(bitIndex)) & 1
		v = (v << 1) | uint(bit)
		br.i++
	}
	return v, true
}

func (br *bitReader) skip(n int) bool { _, ok := br.u(n); return ok }

// ue reads an Exp-Golomb unsigned code.
func (br *bitReader) ue() (uint, bool) {
	var leadingZeros int
	for {
		b, ok := br.u(1)
		if !ok {
			return 0, false
		}
		if b == 0 {
			leadingZeros++
		} else {
			break
		}
	}
	if leadingZeros == 0 {
		return 0, true
	}
	val, ok := br.u(leadingZeros)
	if !ok {
		return 0, false
	}
	return (1 << leadingZeros) - 1 + val, true
}

// se reads an Exp-Golomb signed code.
func (br *bitReader) se() (int, bool) {
	uev, ok := br.ue()
	if !ok {
		return 0, false
	}
	k := int(uev)
	if k%2 == 0 {
		return -k / 2, true
	}
	return (k + 1) / 2, true
}

// ParseH264SPSDimensions decodes an SPS NALU's coded width/height via full
// Exp-Golomb parsing (profile-dependent chroma_format_idc/scaling-matrix
// branch, pic_order_cnt_type branch, frame-cropping), rather than a
// heuristic scan. Returns ok=false on any malformed/truncated SPS.
func ParseH264SPSDimensions(nal []byte) (w, h uint16, ok bool) {
	if len(nal) < 4 || NALUType(nal) != 7 {
		return
	}

	rbsp := make([]byte, 0, len(nal)-1)
	for i := 1; i < len(nal); i++ {
		if i+2 < len(nal) && nal[i] == 0 && nal[i+1] == 0 && nal[i+2] == 3 {
			rbsp = append(rbsp, 0, 0)
			i += 2
			continue
		}
		rbsp = append(rbsp, nal[i])
	}
	br := bitReader{b: rbsp}

	if !br.skip(8 + 8 + 8) { // profile_idc, constraint_flags, level_idc
		return
	}
	if _, ok2 := br.ue(); !ok2 { // seq_parameter_set_id
		return
	}

	var chromaFormatIDC uint = 1
	profileIDC := rbsp[0]
	if isHighProfile(profileIDC) {
		v, ok2 := br.ue()
		if !ok2 {
			return
		}
		chromaFormatIDC = v
		if chromaFormatIDC == 3 {
			if _, ok2 := br.u(1); !ok2 { // separate_colour_plane_flag
				return
			}
		}
		if _, ok2 := br.ue(); !ok2 { // bit_depth_luma_minus8
			return
		}
		if _, ok2 := br.ue(); !ok2 { // bit_depth_chroma_minus8
			return
		}
		if !br.skip(1) { // qpprime_y_zero_transform_bypass_flag
			return
		}
		if f, ok2 := br.u(1); !ok2 {
			return
		} else if f == 1 {
			n := 8
			if chromaFormatIDC == 3 {
				n = 12
			}
			if !skipScalingLists(&br, n) {
				return
			}
		}
	}

	if _, ok2 := br.ue(); !ok2 { // log2_max_frame_num_minus4
		return
	}
	pct, ok2 := br.ue() // pic_order_cnt_type
	if !ok2 {
		return
	}
	switch pct {
	case 0:
		if _, ok2 = br.ue(); !ok2 { // log2_max_pic_order_cnt_lsb_minus4
			return
		}
	case 1:
		if !br.skip(1) { // delta_pic_order_always_zero_flag
			return
		}
		if _, ok2 = br.se(); !ok2 { // offset_for_non_ref_pic
			return
		}
		if _, ok2 = br.se(); !ok2 { // offset_for_top_to_bottom_field
			return
		}
		n, ok2 := br.ue()
		if !ok2 {
			return
		}
		for i := uint(0); i < n; i++ {
			if _, ok2 = br.se(); !ok2 {
				return
			}
		}
	}

	if _, ok2 = br.ue(); !ok2 { // max_num_ref_frames
		return
	}
	if !br.skip(1) { // gaps_in_frame_num_value_allowed_flag
		return
	}

	pwMinus1, ok2 := br.ue()
	if !ok2 {
		return
	}
	phMinus1, ok2 := br.ue()
	if !ok2 {
		return
	}
	frameMbsOnlyFlag, ok2 := br.u(1)
	if !ok2 {
		return
	}
	if frameMbsOnlyFlag == 0 {
		if !br.skip(1) { // mb_adaptive_frame_field_flag
			return
		}
	}
	if !br.skip(1) { // direct_8x8_inference_flag
		return
	}

	var cropLeft, cropRight, cropTop, cropBottom uint
	fcrop, ok2 := br.u(1)
	if !ok2 {
		return
	}
	if fcrop == 1 {
		if cropLeft, ok2 = br.ue(); !ok2 {
			return
		}
		if cropRight, ok2 = br.ue(); !ok2 {
			return
		}
		if cropTop, ok2 = br.ue(); !ok2 {
			return
		}
		if cropBottom, ok2 = br.ue(); !ok2 {
			return
		}
	}

	mbWidth := pwMinus1 + 1
	mbHeight := (phMinus1 + 1) * (2 - frameMbsOnlyFlag)

	var subW, subH uint = 1, 1
	switch chromaFormatIDC {
	case 1:
		subW, subH = 2, 2
	case 2:
		subW, subH = 2, 1
	case 0, 3:
		subW, subH = 1, 1
	}
	cropUnitX := subW
	cropUnitY := subH * (2 - frameMbsOnlyFlag)

	width := int(mbWidth*16) - int((cropLeft+cropRight)*cropUnitX)
	height := int(mbHeight*16) - int((cropTop+cropBottom)*cropUnitY)

	if width <= 0 || height <= 0 || width > 65535 || height > 65535 {
		return
	}
	return uint16(width), uint16(height), true
}

func isHighProfile(profileIDC byte) bool {
	switch profileIDC {
	case 100, 110, 122, 244, 44, 83, 86, 118, 128, 138, 139, 134:
		return true
	default:
		return false
	}
}

func skipScalingLists(br *bitReader, n int) bool {
	for i := 0; i < n; i++ {
		g, ok := br.u(1)
		if !ok {
			return false
		}
		if g != 1 {
			continue
		}
		size := 16
		if i >= 6 {
			size = 64
		}
		lastScale, nextScale := 8, 8
		for j := 0; j < size; j++ {
			if nextScale != 0 {
				delta, ok := br.se()
				if !ok {
					return false
				}
				nextScale = (lastScale + delta + 256) % 256
			}
			if nextScale != 0 {
				lastScale = nextScale
			}
		}
	}
	return true
}

// HasIDR reports whether nalus contains an IDR slice (type 5).
func HasIDR(nalus [][]byte) bool {
	for _, n := range nalus {
		if NALUType(n) == 5 {
			return true
		}
	}
	return false
}

// FilterByType returns the subset of nalus matching naluType.
func FilterByType(nalus [][]byte, naluType byte) [][]byte {
	var out [][]byte
	for _, n := range nalus {
		if NALUType(n) == naluType {
			out = append(out, n)
		}
	}
	return out
}

// CountByType tallies SPS/PPS/IDR/other NALUs in one pass.
func CountByType(nalus [][]byte) (sps, pps, idr, others int) {
	for _, n := range nalus {
		switch NALUType(n) {
		case 7:
			sps++
		case 8:
			pps++
		case 5:
			idr++
		default:
			others++
		}
	}
	return
}

// EqualNALU reports byte-for-byte equality, used to detect SPS/PPS change.
func EqualNALU(a, b []byte) bool {
	return bytes.Equal(a, b)
}
