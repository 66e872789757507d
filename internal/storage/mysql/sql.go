package mysql

const upsertCountryPrefix = "INSERT INTO catalog_countries\n  (id, code, name, display_name, position)\nVALUES "

const upsertCountryOnDup = " ON DUPLICATE KEY UPDATE\n" +
	"  code         = VALUES(code),\n" +
	"  name         = VALUES(name),\n" +
	"  display_name = VALUES(display_name),\n" +
	"  position     = VALUES(position),\n" +
	"  updated_at   = CURRENT_TIMESTAMP"

const deleteAreasSQL = `DELETE FROM catalog_areas WHERE country_id = ?`

const insertAreasPrefix = "INSERT INTO catalog_areas\n  (id, country_id, code, name, display_name, position)\nVALUES "

const listCountriesSQL = `
SELECT id, code, name, display_name
FROM catalog_countries
ORDER BY position, id
`

const listAreasSQL = `
SELECT id, country_id, code, name, display_name
FROM catalog_areas
WHERE country_id = ?
ORDER BY position, id
`
