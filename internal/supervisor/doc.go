// Package supervisor はコマンドの解釈と録画のライフサイクルを統括する
//
// # 責務
// - 入力行の読み取りとコマンドのディスパッチ
// - デバウンスと単一録画の制約の適用
// - 終了要求時のドレイン（実行中の録画の完了待ち）
//
// # 仕様
//   - ディスパッチは Run の単一ゴルーチンで逐次処理する
//   - 他のゴルーチン（HTTPなど）からのコマンドは Submit で同じループに渡す
//   - 状態遷移: running -> draining -> terminated
//   - 終了シグナルは録画を中断せず、ドレインに移行するだけである
package supervisor
