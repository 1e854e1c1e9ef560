// Package trigger は保存トリガーのデバウンス判定を担う
//
// # 責務
// - 単調時刻の供給（テスト時は差し替え可能）
// - 最後に受理したトリガーからの経過時間による受理/棄却の判定
//
// # 仕様
//   - 受理判定と最終トリガー時刻の更新は同じロック内で行う
//   - 初回のトリガーは最小間隔の設定に関わらず必ず受理される
//   - 棄却はエラーではなくポリシー上の判断である
package trigger
