package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Run level messages (info)
		"Processing %s with %s segmenter...":          "%s を %s セグメンターで処理中...",
		"Output saved to %s":                          "出力を %s に保存しました",
		"Summary saved to %s":                         "サマリーを %s に保存しました",
		"Starting run %s":                             "実行 %s を開始します",
		"Stopping run: %s":                            "実行を停止します: %s",
		"Run completed: %d frames in %s":              "実行完了: %d フレーム (%s)",
		"%d frames, %d composited, average %.1f fps":  "%d フレーム, 合成 %d, 平均 %.1f fps",
		"Interrupted, shutting down...":               "中断されました。シャットダウン中...",
		"Failed to write summary: %s":                 "サマリーの書き込みに失敗しました: %s",
		"Failed to load segmenter: %s":                "セグメンターの読み込みに失敗しました: %s",
		"Failed to start scheduler: %s":               "スケジューラーの開始に失敗しました: %s",
		"Failed to close output: %s":                  "出力のクローズに失敗しました: %s",
		"Failed to close frame source: %s":            "フレームソースのクローズに失敗しました: %s",
		"Failed to save debug output: %s":             "デバッグ出力の保存に失敗しました: %s",
		"Failed to encode run stats: %s":              "実行統計のエンコードに失敗しました: %s",
		"Failed to close %T: %s":                      "%T のクローズに失敗しました: %s",
		"Could not probe %s: %s":                      "%s を解析できませんでした: %s",

		// Segmentation session
		"Loading segmenter":                            "セグメンターを読み込み中",
		"Segmenter loaded":                             "セグメンターを読み込みました",
		"Segmenter rejected frame %d: %s":              "セグメンターがフレーム %d を拒否しました: %s",
		"Segmentation failed for frame %d: %s":         "フレーム %d のセグメンテーションに失敗しました: %s",
		"Segmenter returned an invalid mask for frame %d": "フレーム %d に不正なマスクが返されました",
		"Dropped stale mask for frame %d from session %d (current %d)": "フレーム %d の古いマスクを破棄しました (セッション %d, 現在 %d)",
		"Mask for frame %d not ready after %s, using latest":           "フレーム %d のマスクが %s 以内に届かないため最新のマスクを使用します",
		"Request for frame %d still outstanding, reusing it for frame %d": "フレーム %d のリクエストが未完了のため、フレーム %d に再利用します",

		// Scheduler
		"Cannot start: no frame source":                     "開始できません: フレームソースがありません",
		"Cannot start: segmentation not ready: %s":          "開始できません: セグメンテーションの準備ができていません: %s",
		"Scheduler started: %dx%d every %s":                 "スケジューラー開始: %dx%d, 間隔 %s",
		"Scheduler stopped":                                 "スケジューラーを停止しました",
		"Tick %d dropped: previous tick still processing":   "ティック %d をスキップしました: 前のティックが処理中です",
		"Tick failed: %v":                                   "ティックが失敗しました: %v",
		"Frame source %s, skipping tick":                    "フレームソースが %s のためティックをスキップします",
		"Frame source ended":                                "フレームソースが終了しました",
		"Failed to composite frame %d: %s":                  "フレーム %d の合成に失敗しました: %s",
		"Failed to write frame %d: %s":                      "フレーム %d の書き込みに失敗しました: %s",
		"Mask %dx%d does not match frame %dx%d, passing through": "マスク %dx%d がフレーム %dx%d と一致しないため素通しします",

		// Sources and sinks
		"Input video: %dx%d %s, %.2f fps, %d frames": "入力動画: %dx%d %s, %.2f fps, %d フレーム",
		"Decoding %s at %dx%d":                       "%s を %dx%d でデコード中",
		"Decoded %d frames":                          "%d フレームをデコードしました",
		"Found %d images in %s (%dx%d)":              "%d 枚の画像を %s に検出しました (%dx%d)",
		"Encoding %dx%d at %.2f fps to %s":           "%dx%d を %.2f fps で %s にエンコード中",
		"Wrote %d frames to %s":                      "%d フレームを %s に書き込みました",
		"No frames were written to %s":               "%s にフレームが書き込まれませんでした",
		"ffmpeg: %s":                                 "ffmpeg: %s",
	})
}
