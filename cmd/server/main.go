package main

import "registrar/internal/app"

// @title                       Registrar API
// @version                     1.0
// @description                 Inscriptions: accès public par lien et code SMS, back-office.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	app.Run()
}
