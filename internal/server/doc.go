// Package server は、録画トリガーのHTTP制御サーバーを管理します。
//
// このパッケージは、標準入力と並ぶもう1つのコマンド入力経路として、
// HTTPからの録画要求と状態取得、録画イベントの配信を担当します。
//
// 責務:
//   - HTTPサーバーの起動と管理
//   - コマンドのスーパーバイザーへの受け渡し
//   - 保存済みクリップ一覧の提供
//   - WebSocketによる録画イベントの配信
//
// 仕様:
//   - ルーティングはgin-gonic/ginを使用
//   - WebSocketはgorilla/websocketを使用
//   - コマンドはスーパーバイザーの単一ループで処理される
//   - グレースフルシャットダウンに対応
package server
