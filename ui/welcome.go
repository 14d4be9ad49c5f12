package ui

// welcomeText is shown when murmur starts without input. Each line is in a
// different language so every installed voice has something to read.
const welcomeText = `Hello, and welcome to murmur. Type or paste any text here and press space to hear it.
مرحبا بك في murmur. اكتب أي نص هنا واضغط على المسافة لسماعه.
Bonjour et bienvenue dans murmur. Tapez un texte ici et appuyez sur espace pour l'écouter.
Hola y bienvenido a murmur. Escribe cualquier texto aquí y pulsa espacio para escucharlo.
Hallo und willkommen bei murmur. Gib hier einen Text ein und drücke die Leertaste, um ihn zu hören.`
