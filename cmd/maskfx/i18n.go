// Package main provides localization for the maskfx CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Flag categories
		"Input":        "入力",
		"Segmentation": "セグメンテーション",
		"Effect":       "エフェクト",
		"Scheduling":   "スケジューリング",
		"Output":       "出力",
		"Debug":        "デバッグ",
		"Logging":      "ログ",

		// Commands
		"Apply background effects to video using segmentation masks": "セグメンテーションマスクを使って動画の背景にエフェクトを適用",
		"Process frames from a video or image sequence":              "動画または連番画像のフレームを処理",
		"Print the default configuration as YAML":                    "デフォルト設定をYAMLで出力",
		"Show video track information of an MP4 file":                "MP4ファイルの映像トラック情報を表示",
		"Show version information":                                   "バージョン情報を表示",
		"maskfx version %s":                                          "maskfx バージョン %s",
		"Error: %s":                                                  "エラー: %s",
		"A video file argument is required":                          "動画ファイルを指定してください",

		// Flags
		"YAML configuration file":                                             "YAML設定ファイル",
		"Input video file or image directory":                                 "入力動画ファイルまたは画像ディレクトリ",
		"Source type (video, images)":                                         "入力の種類（video, images）",
		"Scale input to this width":                                           "入力をこの幅に拡縮",
		"Scale input to this height":                                          "入力をこの高さに拡縮",
		"Decode at the native frame rate and always use the latest frame":     "元のフレームレートでデコードし常に最新フレームを使用",
		"Restart image sequences at the end":                                  "連番画像の末尾で先頭に戻る",
		"Path to ffmpeg executable":                                           "ffmpeg実行ファイルのパス",
		"Segmenter (chromakey, maskdir)":                                      "セグメンター（chromakey, maskdir）",
		"Chroma key background color (hex)":                                   "クロマキーの背景色（16進）",
		"Chroma key color distance treated as background":                     "背景とみなすクロマキーの色距離",
		"Chroma key edge softness":                                            "クロマキーの境界のぼかし幅",
		"Artificial segmentation latency in milliseconds":                     "セグメンテーションに加える遅延（ミリ秒）",
		"Directory of precomputed mask images":                                "事前計算済みマスク画像のディレクトリ",
		"Scale masks to the frame size":                                       "マスクをフレームサイズに拡縮",
		"Confidence threshold (0-1)":                                          "信頼度のしきい値（0-1）",
		"Grayscale method (average, perceptual)":                              "グレースケール変換方式（average, perceptual）",
		"Background effect (grayscale, blur)":                                 "背景エフェクト（grayscale, blur）",
		"Blur strength":                                                       "ぼかしの強さ",
		"Tick rate in frames per second":                                      "処理レート（フレーム/秒）",
		"Stale mask policy (strict, enabled)":                                 "古いマスクの扱い（strict, enabled）",
		"Maximum wait for a mask in milliseconds (0 never waits, -1 waits for every result)": "マスクの最大待ち時間（ミリ秒、0で待たない、-1で常に待機）",
		"Stop after this many output frames":                                  "指定フレーム数を出力したら停止",
		"Stop after this duration":                                            "指定時間が経過したら停止",
		"Output MP4 file or image directory":                                  "出力MP4ファイルまたは画像ディレクトリ",
		"Output type (video, images, none)":                                   "出力の種類（video, images, none）",
		"Image format (jpeg, png)":                                            "画像形式（jpeg, png）",
		"Quality (CRF for video, JPEG quality for images)":                    "品質（動画はCRF、画像はJPEG品質）",
		"Quality preset (low, medium, high)":                                  "品質プリセット（low, medium, high）",
		"Do not draw statistics on output frames":                             "出力フレームに統計を描画しない",
		"Write a run summary (Markdown, or JSON for .json)":                   "実行サマリーを出力（Markdown、.jsonならJSON）",
		"Enable debug output":                                                 "デバッグ出力を有効化",
		"Directory for debug output":                                          "デバッグ出力先ディレクトリ",
		"Log level (debug, info, warn, error)":                                "ログレベル（debug, info, warn, error）",
		"Log format (console, json, text)":                                    "ログ形式（console, json, text）",
		"Suppress all log output":                                             "ログ出力をすべて抑制",

		// Probe
		"Codec":       "コーデック",
		"Size":        "サイズ",
		"Frame Rate":  "フレームレート",
		"Frame Count": "フレーム数",
		"Duration":    "時間",

		// Summary
		"Run Summary":             "実行サマリー",
		"Generated At":            "生成日時",
		"Run ID":                  "実行ID",
		"Item":                    "項目",
		"Value":                   "値",
		"Source":                  "入力元",
		"Source FPS":              "入力FPS",
		"Performance":             "パフォーマンス",
		"Final FPS":               "最終FPS",
		"Average FPS":             "平均FPS",
		"Average Processing Time": "平均処理時間",
		"Max Processing Time":     "最大処理時間",
		"Frames":                  "フレーム",
		"Output Frames":           "出力フレーム数",
		"Composited":              "合成済み",
		"Passthrough":             "素通し",
		"Size Mismatches":         "サイズ不一致",
		"Dropped Ticks":           "スキップしたティック",
		"Failed Ticks":            "失敗したティック",
		"Stop Reason":             "停止理由",
		"Segmenter":               "セグメンター",
		"Staleness Policy":        "古いマスクの扱い",
		"Requests":                "リクエスト数",
		"Accepted":                "採用",
		"Rejected as Stale":       "古いため破棄",
		"Failed":                  "失敗",
		"Average Person Coverage": "平均人物領域",
		"Settings":                "設定",
		"Grayscale Method":        "グレースケール変換方式",
		"Confidence Threshold":    "信頼度しきい値",
		"Target FPS":              "目標FPS",
		"Mask Timeout":            "マスク待ち時間",
		"Wait for every result":   "常に結果を待つ",
		"Use the latest mask without waiting": "待たずに最新のマスクを使用",
		"Type":                    "種類",
		"Path":                    "パス",
		"File Size":               "ファイルサイズ",
		"Generated by maskfx":     "maskfx により生成",

		// Stop reasons
		"source-ended": "入力終了",
		"max-frames":   "最大フレーム数",
		"duration":     "時間制限",
		"cancelled":    "中断",
	})
}
