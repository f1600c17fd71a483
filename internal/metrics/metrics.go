// Package metrics publishes process-wide expvar counters: frame/byte
// throughput, NALU composition, control-socket write outcomes, video
// dimensions and drop counts. Only VideoW/VideoH and CtrlWritesOK/
// CtrlWritesErr are updated by this module; the other counters are
// published but nothing increments them. Carried forward from
// the teacher's own single-device expvar block, generalized to a
// multi-device process (counters are process-wide totals, not per-device,
// matching expvar's own flat namespace).
package metrics

import "expvar"

var (
	FramesRead    = expvar.NewInt("frames_read")
	BytesRead     = expvar.NewInt("bytes_read")
	FramesDropped = expvar.NewInt("frames_dropped_on_send")

	CtrlWritesOK  = expvar.NewInt("control_writes_ok")
	CtrlWritesErr = expvar.NewInt("control_writes_err")

	NALUSPS    = expvar.NewInt("nalu_sps")
	NALUPPS    = expvar.NewInt("nalu_pps")
	NALUIDR    = expvar.NewInt("nalu_idr")
	NALUOthers = expvar.NewInt("nalu_others")

	VideoW = expvar.NewInt("video_w")
	VideoH = expvar.NewInt("video_h")

	AuSeq         = expvar.NewInt("au_seq")
	FramesSinceKF = expvar.NewInt("frames_since_kf")
)
