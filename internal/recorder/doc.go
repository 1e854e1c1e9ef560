// Package recorder は外部録画プロセスの起動と終了監視を担う
//
// # 責務
// - 録画コマンド（既定: rpicam-vid）の起動
// - 実行中の録画数の管理
// - 録画プロセス終了の非同期検出（リーパー）
// - 終了待ち合わせ（ドレイン）
//
// # 仕様
//   - 起動は完了を待たずに戻る
//   - 実行中の録画数は Tracker のロックを通してのみ増減する
//   - プロセスごとに1つのゴルーチンが Wait でブロックし、終了時に1度だけ減算する
//   - 単一録画の制約は呼び出し側の責務で、Launcher 自身は強制しない
//
// # 前提要件
//   - rpicam-vid: Raspberry Pi カメラでの録画に使用
//     Raspberry Pi OS: sudo apt install rpicam-apps
package recorder
