// @title           uploadgate API
// @version         1.0
// @description     Upload session orchestration service: presigned direct and
// @description     multipart uploads, storage webhooks and live progress.
// @host            localhost:4000
// @BasePath        /

package main

import "uploadgate/internal/app"

func main() {
	app.Run()
}
