package video

import (
	"bytes"

	"github.com/Eyevinn/mp4ff/avc"
	"github.com/Eyevinn/mp4ff/bits"
)

// NAL start-code and type constants for Annex-B bitstreams.
const (
	nalTypeSPS          = 7
	lowLatencyRefFrames = 2 // target num_ref_frames / max_dec_frame_buffering
)

// SPSPatcher rewrites the first SPS NAL of a stream to a low-latency
// num_ref_frames/max_dec_frame_buffering constant, once per session. If no
// SPS NAL is found in the first access unit the stream passes through
// unmodified — some encoders omit SPS on keyframes after the first.
type SPSPatcher struct {
	done bool
}

// Patch rewrites the first SPS NAL it sees to the low-latency ref-frame
// constant, returning a new frame slice (the rewritten SPS rarely has the
// same bit length as the original, so this can't be done in place); every
// call after that is a no-op passthrough, matching the one-shot-per-session
// contract.
func (p *SPSPatcher) Patch(frame []byte) []byte {
	if p.done {
		return frame
	}
	start, end, ok := findNAL(frame, nalTypeSPS)
	if !ok {
		return frame
	}
	p.done = true
	patched := patchSPSRefFrames(frame[start:end], lowLatencyRefFrames)
	out := make([]byte, 0, start+len(patched)+len(frame)-end)
	out = append(out, frame[:start]...)
	out = append(out, patched...)
	out = append(out, frame[end:]...)
	return out
}

// findNAL locates the byte range [start,end) of the first NAL of nalType in
// an Annex-B bitstream (frame delimited by 3- or 4-byte start codes).
func findNAL(frame []byte, nalType byte) (start, end int, ok bool) {
	starts := nalStarts(frame)
	for i, s := range starts {
		if s >= len(frame) {
			continue
		}
		if frame[s]&0x1f != nalType {
			continue
		}
		e := len(frame)
		if i+1 < len(starts) {
			// starts[i+1] is the next NAL's header byte; back up over its
			// 3-byte start code, plus the leading zero of a 4-byte one.
			e = starts[i+1] - 3
			if e > s && frame[e-1] == 0 {
				e--
			}
		}
		return s, e, true
	}
	return 0, 0, false
}

// nalStarts returns the byte offset of each NAL header (the byte after its
// start code) in an Annex-B bitstream.
func nalStarts(frame []byte) []int {
	var offsets []int
	i := 0
	for i < len(frame)-2 {
		if frame[i] == 0 && frame[i+1] == 0 {
			if frame[i+2] == 1 {
				offsets = append(offsets, i+3)
				i += 3
				continue
			}
			if i < len(frame)-3 && frame[i+2] == 0 && frame[i+3] == 1 {
				offsets = append(offsets, i+4)
				i += 4
				continue
			}
		}
		i++
	}
	return offsets
}

// patchSPSRefFrames rewrites an SPS NAL's num_ref_frames and
// vui.max_dec_frame_buffering to value. Both fields sit behind a chain of
// variable-width ue(v)/se(v) syntax elements starting right after
// level_idc (seq_parameter_set_id, the optional chroma/bit-depth block,
// pic-order-cnt fields...), so their true bit position shifts with every
// encoder's actual parameter choices — there's no fixed byte offset that
// reaches either one. This fully parses the SPS with mp4ff and
// re-serializes it field-by-field, substituting value for the two target
// fields and copying everything else through unchanged. Returns sps
// unchanged if it fails to parse, or if it carries custom scaling lists
// (no profile this client negotiates uses them, and re-encoding the
// scaling-list delta syntax isn't worth the added surface for a path that
// never fires).
func patchSPSRefFrames(sps []byte, value byte) []byte {
	if len(sps) == 0 {
		return sps
	}
	parsed, err := avc.ParseSPSNALUnit(sps, true)
	if err != nil {
		return sps
	}
	if parsed.SeqScalingMatrixPresentFlag {
		return sps
	}

	var buf bytes.Buffer
	w := bits.NewEBSPWriter(&buf)
	writeSPSWithRefFrames(w, sps[0], parsed, uint(value))
	w.WriteRbspTrailingBits()
	if w.AccError() != nil {
		return sps
	}
	return buf.Bytes()
}

// writeSPSWithRefFrames re-emits parsed's SPS syntax in field order,
// pinning num_ref_frames and vui.max_dec_frame_buffering to refFrames and
// copying every other field straight from parsed. nalHeader is carried
// through unchanged rather than reconstructed, so nal_ref_idc isn't
// clobbered by a guess.
func writeSPSWithRefFrames(w *bits.EBSPWriter, nalHeader byte, sps *avc.SPS, refFrames uint) {
	w.Write(uint(nalHeader), 8)
	w.Write(uint(sps.Profile), 8)
	w.Write(uint(sps.ProfileCompatibility), 8)
	w.Write(uint(sps.Level), 8)
	w.WriteExpGolomb(uint(sps.ParameterID))

	switch sps.Profile {
	case 100, 110, 122, 244, 44, 83, 86, 118, 128, 138, 139, 134, 135:
		w.WriteExpGolomb(uint(sps.ChromaFormatIDC))
		if sps.ChromaFormatIDC == 3 {
			writeFlag(w, sps.SeparateColourPlaneFlag)
		}
		w.WriteExpGolomb(sps.BitDepthLumaMinus8)
		w.WriteExpGolomb(sps.BitDepthChromaMinus8)
		writeFlag(w, sps.QPPrimeYZeroTransformBypassFlag)
		writeFlag(w, false) // seq_scaling_matrix_present_flag: screened out by the caller
	}

	w.WriteExpGolomb(sps.Log2MaxFrameNumMinus4)
	w.WriteExpGolomb(sps.PicOrderCntType)
	switch sps.PicOrderCntType {
	case 0:
		w.WriteExpGolomb(sps.Log2MaxPicOrderCntLsbMinus4)
	case 1:
		writeFlag(w, sps.DeltaPicOrderAlwaysZeroFlag)
		w.WriteExpGolomb(sps.OffsetForNonRefPic)
		w.WriteExpGolomb(sps.OffsetForTopToBottomField)
		w.WriteExpGolomb(uint(len(sps.RefFramesInPicOrderCntCycle)))
		for _, offset := range sps.RefFramesInPicOrderCntCycle {
			w.WriteExpGolomb(offset)
		}
	}

	w.WriteExpGolomb(refFrames) // num_ref_frames, patched

	writeFlag(w, sps.GapsInFrameNumValueAllowedFlag)

	widthMinus1, heightMinus1 := macroblockDims(sps)
	w.WriteExpGolomb(widthMinus1)
	w.WriteExpGolomb(heightMinus1)

	writeFlag(w, sps.FrameMbsOnlyFlag)
	if !sps.FrameMbsOnlyFlag {
		writeFlag(w, sps.MbAdaptiveFrameFieldFlag)
	}
	writeFlag(w, sps.Direct8x8InferenceFlag)

	writeFlag(w, sps.FrameCroppingFlag)
	if sps.FrameCroppingFlag {
		w.WriteExpGolomb(sps.FrameCropLeftOffset)
		w.WriteExpGolomb(sps.FrameCropRightOffset)
		w.WriteExpGolomb(sps.FrameCropTopOffset)
		w.WriteExpGolomb(sps.FrameCropBottomOffset)
	}

	vuiPresent := sps.VUI != nil
	writeFlag(w, vuiPresent)
	if vuiPresent {
		writeVUIWithDecFrameBuffering(w, sps.VUI, refFrames)
	}
}

// macroblockDims recovers pic_width_in_mbs_minus1/pic_height_in_map_units_minus1
// from parsed's already crop-adjusted Width/Height, undoing the crop so the
// re-encoded SPS carries the same macroblock grid as the original.
func macroblockDims(sps *avc.SPS) (widthMinus1, heightMinus1 uint) {
	var cropUnitX, cropUnitY uint = 1, 1
	var frameMbsOnly uint
	if sps.FrameMbsOnlyFlag {
		frameMbsOnly = 1
	}
	switch sps.ChromaFormatIDC {
	case 0:
		cropUnitX, cropUnitY = 1, 2-frameMbsOnly
	case 1:
		cropUnitX, cropUnitY = 2, 2*(2-frameMbsOnly)
	case 2:
		cropUnitX, cropUnitY = 2, 1*(2-frameMbsOnly)
	case 3:
		cropUnitX, cropUnitY = 1, 1*(2-frameMbsOnly)
	}

	width, height := sps.Width, sps.Height
	if sps.FrameCroppingFlag {
		width += (sps.FrameCropLeftOffset + sps.FrameCropRightOffset) * cropUnitX
		height += (sps.FrameCropTopOffset + sps.FrameCropBottomOffset) * cropUnitY
	}

	widthMinus1 = width/16 - 1
	if sps.FrameMbsOnlyFlag {
		heightMinus1 = height/16 - 1
	} else {
		heightMinus1 = height/32 - 1
	}
	return widthMinus1, heightMinus1
}

// writeVUIWithDecFrameBuffering re-emits vui's syntax verbatim up through
// pic_struct_present_flag, then forces bitstream_restriction_flag on and
// pins max_dec_frame_buffering to decFrameBuffering — so the field lands
// in the bitstream even for encoders that never signalled bitstream
// restrictions themselves. max_num_reorder_frames goes to 0 alongside it,
// the paired setting low-latency decode expects (a nonzero reorder count
// otherwise obliges the decoder to hold frames back regardless of what
// max_dec_frame_buffering says).
func writeVUIWithDecFrameBuffering(w *bits.EBSPWriter, vui *avc.VUIParameters, decFrameBuffering uint) {
	hasAspectRatio := vui.SampleAspectRatioWidth > 0 && vui.SampleAspectRatioHeight > 0
	writeFlag(w, hasAspectRatio)
	if hasAspectRatio {
		w.Write(255, 8) // Extended_SAR
		w.Write(vui.SampleAspectRatioWidth, 16)
		w.Write(vui.SampleAspectRatioHeight, 16)
	}

	writeFlag(w, vui.OverscanInfoPresentFlag)
	if vui.OverscanInfoPresentFlag {
		writeFlag(w, vui.OverscanAppropriateFlag)
	}

	writeFlag(w, vui.VideoSignalTypePresentFlag)
	if vui.VideoSignalTypePresentFlag {
		w.Write(vui.VideoFormat, 3)
		writeFlag(w, vui.VideoFullRangeFlag)
		writeFlag(w, vui.ColourDescriptionFlag)
		if vui.ColourDescriptionFlag {
			w.Write(vui.ColourPrimaries, 8)
			w.Write(vui.TransferCharacteristics, 8)
			w.Write(vui.MatrixCoefficients, 8)
		}
	}

	writeFlag(w, vui.ChromaLocInfoPresentFlag)
	if vui.ChromaLocInfoPresentFlag {
		w.WriteExpGolomb(vui.ChromaSampleLocTypeTopField)
		w.WriteExpGolomb(vui.ChromaSampleLocTypeBottomField)
	}

	writeFlag(w, vui.TimingInfoPresentFlag)
	if vui.TimingInfoPresentFlag {
		w.Write(vui.NumUnitsInTick, 32)
		w.Write(vui.TimeScale, 32)
		writeFlag(w, vui.FixedFrameRateFlag)
	}

	writeFlag(w, vui.NalHrdParametersPresentFlag)
	if vui.NalHrdParametersPresentFlag {
		writeHrdParameters(w, vui.NalHrdParameters)
	}
	writeFlag(w, vui.VclHrdParametersPresentFlag)
	if vui.VclHrdParametersPresentFlag {
		writeHrdParameters(w, vui.VclHrdParameters)
	}
	if vui.NalHrdParametersPresentFlag || vui.VclHrdParametersPresentFlag {
		writeFlag(w, vui.LowDelayHrdFlag)
	}

	writeFlag(w, vui.PicStructPresentFlag)

	w.Write(1, 1)              // bitstream_restriction_flag, forced on
	writeFlag(w, true)         // motion_vectors_over_pic_boundaries_flag
	w.WriteExpGolomb(uint(2))  // max_bytes_per_pic_denom
	w.WriteExpGolomb(uint(1))  // max_bits_per_mb_denom
	w.WriteExpGolomb(uint(16)) // log2_max_mv_length_horizontal
	w.WriteExpGolomb(uint(16)) // log2_max_mv_length_vertical
	w.WriteExpGolomb(uint(0))  // max_num_reorder_frames
	w.WriteExpGolomb(decFrameBuffering)
}

// writeHrdParameters re-emits hrd's syntax verbatim; hrd_parameters() isn't
// one of the fields this patch touches, only something that has to be
// skipped over correctly when present.
func writeHrdParameters(w *bits.EBSPWriter, hrd *avc.HrdParameters) {
	if hrd == nil {
		return
	}

	w.WriteExpGolomb(hrd.CpbCountMinus1)
	w.Write(hrd.BitRateScale, 4)
	w.Write(hrd.CpbSizeScale, 4)

	for i := uint(0); i <= hrd.CpbCountMinus1; i++ {
		if i < uint(len(hrd.CpbEntries)) {
			entry := hrd.CpbEntries[i]
			w.WriteExpGolomb(entry.BitRateValueMinus1)
			w.WriteExpGolomb(entry.CpbSizeValueMinus1)
			writeFlag(w, entry.CbrFlag)
		}
	}

	w.Write(hrd.InitialCpbRemovalDelayLengthMinus1, 5)
	w.Write(hrd.CpbRemovalDelayLengthMinus1, 5)
	w.Write(hrd.DpbOutputDelayLengthMinus1, 5)
	w.Write(hrd.TimeOffsetLength, 5)
}

func writeFlag(w *bits.EBSPWriter, flag bool) {
	if flag {
		w.Write(1, 1)
	} else {
		w.Write(0, 1)
	}
}
