// breezed 是基于 breeze 引擎的静态文件与 SSI 服务器。
package main

import "github.com/favbox/breeze/cmd/breezed/cmd"

func main() {
	cmd.Execute()
}
